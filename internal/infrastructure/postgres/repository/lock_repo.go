package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultLockRepository keeps leases in the shedlock table so that every
// replica sharing the database competes for the same row.
type DefaultLockRepository struct {
	DB       *gorm.DB
	identity string
	now      func() time.Time
}

func NewDefaultLockRepository(db *gorm.DB, identity string) *DefaultLockRepository {
	return &DefaultLockRepository{
		DB:       db,
		identity: identity,
		now:      time.Now,
	}
}

func (r *DefaultLockRepository) TryAcquire(ctx context.Context, name string, minHold, maxHold time.Duration) (*domain.LockLease, error) {
	now := r.now().UTC()
	lease := &domain.LockLease{
		Name:      name,
		LockedBy:  r.identity,
		LockedAt:  now,
		LockUntil: now.Add(maxHold),
		MinUntil:  now.Add(minHold),
	}

	row := models.ShedLockModel{
		Name:      name,
		LockUntil: lease.LockUntil,
		LockedAt:  lease.LockedAt,
		LockedBy:  lease.LockedBy,
	}
	inserted := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if inserted.Error != nil {
		return nil, fmt.Errorf("insert lock %s: %w", name, inserted.Error)
	}
	if inserted.RowsAffected == 1 {
		return lease, nil
	}

	updated := r.DB.WithContext(ctx).Model(&models.ShedLockModel{}).
		Where("name = ? AND lock_until <= ?", name, now).
		Updates(map[string]interface{}{
			"lock_until": lease.LockUntil,
			"locked_at":  lease.LockedAt,
			"locked_by":  lease.LockedBy,
		})
	if updated.Error != nil {
		return nil, fmt.Errorf("take over lock %s: %w", name, updated.Error)
	}
	if updated.RowsAffected == 1 {
		return lease, nil
	}
	return nil, nil
}

func (r *DefaultLockRepository) Release(ctx context.Context, lease *domain.LockLease) error {
	until := lease.ReleaseUntil(r.now().UTC())
	err := r.DB.WithContext(ctx).Model(&models.ShedLockModel{}).
		Where("name = ? AND locked_by = ?", lease.Name, lease.LockedBy).
		Update("lock_until", until).Error
	if err != nil {
		return fmt.Errorf("release lock %s: %w", lease.Name, err)
	}
	return nil
}
