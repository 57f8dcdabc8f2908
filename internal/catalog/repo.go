package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
)

// Repository manages persistence for hierarchy levels and values.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateLevels(ctx context.Context, levels []models.DistributionLevel) error
	ListLevels(ctx context.Context, campaignID uuid.UUID) ([]models.DistributionLevel, error)
	FindLevel(ctx context.Context, levelID uuid.UUID) (*models.DistributionLevel, error)
	FindValue(ctx context.Context, valueID uuid.UUID) (*models.DistributionValue, error)
	FindValueByName(ctx context.Context, levelID uuid.UUID, name string) (*models.DistributionValue, error)
	CreateValue(ctx context.Context, value *models.DistributionValue) error
	ListValues(ctx context.Context, levelID uuid.UUID, parentValueID *uuid.UUID) ([]models.DistributionValue, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateLevels(ctx context.Context, levels []models.DistributionLevel) error {
	if len(levels) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&levels).Error
}

func (r *repository) ListLevels(ctx context.Context, campaignID uuid.UUID) ([]models.DistributionLevel, error) {
	var levels []models.DistributionLevel
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("level_number ASC").
		Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

func (r *repository) FindLevel(ctx context.Context, levelID uuid.UUID) (*models.DistributionLevel, error) {
	var level models.DistributionLevel
	if err := r.db.WithContext(ctx).First(&level, "id = ?", levelID).Error; err != nil {
		return nil, err
	}
	return &level, nil
}

func (r *repository) FindValue(ctx context.Context, valueID uuid.UUID) (*models.DistributionValue, error) {
	var value models.DistributionValue
	if err := r.db.WithContext(ctx).First(&value, "id = ?", valueID).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *repository) FindValueByName(ctx context.Context, levelID uuid.UUID, name string) (*models.DistributionValue, error) {
	var value models.DistributionValue
	if err := r.db.WithContext(ctx).
		Where("level_id = ? AND LOWER(name) = LOWER(?)", levelID, name).
		First(&value).Error; err != nil {
		return nil, err
	}
	return &value, nil
}

func (r *repository) CreateValue(ctx context.Context, value *models.DistributionValue) error {
	return r.db.WithContext(ctx).Create(value).Error
}

func (r *repository) ListValues(ctx context.Context, levelID uuid.UUID, parentValueID *uuid.UUID) ([]models.DistributionValue, error) {
	q := r.db.WithContext(ctx).Where("level_id = ?", levelID)
	if parentValueID != nil {
		q = q.Where("parent_value_id = ?", *parentValueID)
	}

	var values []models.DistributionValue
	if err := q.Order("name ASC").Find(&values).Error; err != nil {
		return nil, err
	}
	return values, nil
}
