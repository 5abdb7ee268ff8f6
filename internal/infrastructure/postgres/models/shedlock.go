package models

import "time"

type ShedLockModel struct {
	Name      string    `gorm:"primaryKey;size:64"`
	LockUntil time.Time `gorm:"not null"`
	LockedAt  time.Time `gorm:"not null"`
	LockedBy  string    `gorm:"size:255;not null"`
}

func (ShedLockModel) TableName() string {
	return "shedlock"
}
