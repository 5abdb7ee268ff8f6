package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/LavaJover/shvark-currency-service/internal/domain"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/shvark-currency-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
)

type DefaultCurrencySeriesRepository struct {
	DB *gorm.DB
}

func NewDefaultCurrencySeriesRepository(db *gorm.DB) *DefaultCurrencySeriesRepository {
	return &DefaultCurrencySeriesRepository{
		DB: db,
	}
}

func (r *DefaultCurrencySeriesRepository) FindEnabled(ctx context.Context) ([]*domain.CurrencySeries, error) {
	var seriesModels []*models.CurrencySeriesModel
	if err := r.DB.WithContext(ctx).Where("enabled = ?", true).Order("currency_code").Find(&seriesModels).Error; err != nil {
		return nil, err
	}
	return toDomainSeriesList(seriesModels), nil
}

func (r *DefaultCurrencySeriesRepository) FindAll(ctx context.Context) ([]*domain.CurrencySeries, error) {
	var seriesModels []*models.CurrencySeriesModel
	if err := r.DB.WithContext(ctx).Order("currency_code").Find(&seriesModels).Error; err != nil {
		return nil, err
	}
	return toDomainSeriesList(seriesModels), nil
}

func (r *DefaultCurrencySeriesRepository) FindByID(ctx context.Context, id int64) (*domain.CurrencySeries, error) {
	var seriesModel models.CurrencySeriesModel
	if err := r.DB.WithContext(ctx).First(&seriesModel, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", domain.ErrCurrencySeriesNotFound, id)
		}
		return nil, err
	}
	return mappers.ToDomainCurrencySeries(&seriesModel), nil
}

func (r *DefaultCurrencySeriesRepository) FindByCurrencyCode(ctx context.Context, code string) (*domain.CurrencySeries, error) {
	var seriesModel models.CurrencySeriesModel
	if err := r.DB.WithContext(ctx).Where("currency_code = ?", code).First(&seriesModel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCurrencySeriesNotFound, code)
		}
		return nil, err
	}
	return mappers.ToDomainCurrencySeries(&seriesModel), nil
}

func (r *DefaultCurrencySeriesRepository) Create(ctx context.Context, series *domain.CurrencySeries) error {
	seriesModel := mappers.ToGORMCurrencySeries(series)
	if err := r.DB.WithContext(ctx).Create(seriesModel).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", domain.ErrCurrencySeriesExists, series.CurrencyCode)
		}
		return err
	}
	series.ID = seriesModel.ID
	series.CreatedAt = seriesModel.CreatedAt
	series.UpdatedAt = seriesModel.UpdatedAt
	return nil
}

func (r *DefaultCurrencySeriesRepository) Update(ctx context.Context, series *domain.CurrencySeries) error {
	result := r.DB.WithContext(ctx).Model(&models.CurrencySeriesModel{}).Where("id = ?", series.ID).Updates(map[string]interface{}{
		"provider_series_id": series.ProviderSeriesID,
		"enabled":            series.Enabled,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrCurrencySeriesNotFound, series.ID)
	}
	return nil
}

func toDomainSeriesList(seriesModels []*models.CurrencySeriesModel) []*domain.CurrencySeries {
	seriesList := make([]*domain.CurrencySeries, len(seriesModels))
	for i, seriesModel := range seriesModels {
		seriesList[i] = mappers.ToDomainCurrencySeries(seriesModel)
	}
	return seriesList
}
