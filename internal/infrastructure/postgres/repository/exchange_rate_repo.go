package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

const saveBatchSize = 500

type DefaultExchangeRateRepository struct {
	DB *gorm.DB
}

func NewDefaultExchangeRateRepository(db *gorm.DB) *DefaultExchangeRateRepository {
	return &DefaultExchangeRateRepository{
		DB: db,
	}
}

func (r *DefaultExchangeRateRepository) pair(ctx context.Context, base, target string) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&models.ExchangeRateModel{}).
		Where("base_currency = ? AND target_currency = ?", base, target)
}

func (r *DefaultExchangeRateRepository) HasRates(ctx context.Context, base, target string) (bool, error) {
	var ids []int64
	if err := r.pair(ctx, base, target).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *DefaultExchangeRateRepository) HasAnyRates(ctx context.Context) (bool, error) {
	var ids []int64
	if err := r.DB.WithContext(ctx).Model(&models.ExchangeRateModel{}).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *DefaultExchangeRateRepository) FindMostRecentRateDate(ctx context.Context, base, target string) (*time.Time, error) {
	var latest sql.NullTime
	if err := r.pair(ctx, base, target).Select("MAX(date)").Row().Scan(&latest); err != nil {
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	d := domain.NormalizeDate(latest.Time)
	return &d, nil
}

func (r *DefaultExchangeRateRepository) FindRate(ctx context.Context, base, target string, date time.Time) (*domain.ExchangeRate, error) {
	var rateModel models.ExchangeRateModel
	err := r.pair(ctx, base, target).Where("date = ?", domain.NormalizeDate(date)).Take(&rateModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return mappers.ToDomainExchangeRate(&rateModel), nil
}

func (r *DefaultExchangeRateRepository) FindRange(ctx context.Context, base, target string, from, to time.Time) ([]*domain.ExchangeRate, error) {
	var rateModels []*models.ExchangeRateModel
	err := r.pair(ctx, base, target).
		Where("date BETWEEN ? AND ?", domain.NormalizeDate(from), domain.NormalizeDate(to)).
		Order("date").
		Find(&rateModels).Error
	if err != nil {
		return nil, err
	}
	return mappers.ToDomainExchangeRates(rateModels), nil
}

func (r *DefaultExchangeRateRepository) FindLatest(ctx context.Context, base, target string) (*domain.ExchangeRate, error) {
	var rateModel models.ExchangeRateModel
	err := r.pair(ctx, base, target).Order("date DESC").Take(&rateModel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return mappers.ToDomainExchangeRate(&rateModel), nil
}

func (r *DefaultExchangeRateRepository) SaveRate(ctx context.Context, rate *domain.ExchangeRate) error {
	rateModel := mappers.ToGORMExchangeRate(rate)
	if err := r.DB.WithContext(ctx).Save(rateModel).Error; err != nil {
		return err
	}
	rate.ID = rateModel.ID
	rate.UpdatedAt = rateModel.UpdatedAt
	return nil
}

func (r *DefaultExchangeRateRepository) SaveAllRates(ctx context.Context, rates []*domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}

	rateModels := make([]*models.ExchangeRateModel, len(rates))
	for i, rate := range rates {
		rateModels[i] = mappers.ToGORMExchangeRate(rate)
	}
	if err := r.DB.WithContext(ctx).CreateInBatches(rateModels, saveBatchSize).Error; err != nil {
		return err
	}

	for i, rateModel := range rateModels {
		rates[i].ID = rateModel.ID
		rates[i].CreatedAt = rateModel.CreatedAt
		rates[i].UpdatedAt = rateModel.UpdatedAt
	}
	return nil
}

func (r *DefaultExchangeRateRepository) Transaction(ctx context.Context, fn func(repo domain.ExchangeRateRepository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DefaultExchangeRateRepository{DB: tx})
	})
}
