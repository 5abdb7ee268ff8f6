package models

import "time"

type CurrencySeriesModel struct {
	ID               int64  `gorm:"primaryKey;autoIncrement"`
	CurrencyCode     string `gorm:"size:3;not null;uniqueIndex"`
	ProviderSeriesID string `gorm:"size:50;not null"`
	Enabled          bool   `gorm:"not null;default:true;index"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (CurrencySeriesModel) TableName() string {
	return "currency_series"
}
