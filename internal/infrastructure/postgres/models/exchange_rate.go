package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ExchangeRateModel struct {
	ID             int64           `gorm:"primaryKey;autoIncrement"`
	BaseCurrency   string          `gorm:"size:3;not null;uniqueIndex:uk_exchange_rate_pair_date"`
	TargetCurrency string          `gorm:"size:3;not null;uniqueIndex:uk_exchange_rate_pair_date"`
	Date           time.Time       `gorm:"type:date;not null;uniqueIndex:uk_exchange_rate_pair_date"`
	Rate           decimal.Decimal `gorm:"type:numeric(38,10);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ExchangeRateModel) TableName() string {
	return "exchange_rates"
}
