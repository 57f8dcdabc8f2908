package units

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
	"github.com/dariomutua/fundraza-backend/pkg/pagination"
)

// Repository manages persistence for ticket books.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, units []models.Unit) error
	FindByID(ctx context.Context, unitID uuid.UUID) (*models.Unit, error)
	// FindByIDForUpdate row-locks the unit for the duration of the enclosing
	// transaction. Status transitions go through this.
	FindByIDForUpdate(ctx context.Context, unitID uuid.UUID) (*models.Unit, error)
	UpdateStatus(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]models.Unit, error)
	CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[enums.UnitStatus]int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a unit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateBatch(ctx context.Context, units []models.Unit) error {
	if len(units) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&units).Error
}

func (r *repository) FindByID(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).First(&unit, "id = ?", unitID).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, unitID uuid.UUID) (*models.Unit, error) {
	var unit models.Unit
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&unit, "id = ?", unitID).Error; err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r *repository) UpdateStatus(ctx context.Context, unitID uuid.UUID, status enums.UnitStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Where("id = ?", unitID).
		Update("status", status).Error
}

func (r *repository) ListByCampaign(ctx context.Context, campaignID uuid.UUID, status *enums.UnitStatus, params pagination.Params) ([]models.Unit, error) {
	q := r.db.WithContext(ctx).Where("campaign_id = ?", campaignID)
	if status != nil {
		q = q.Where("status = ?", *status)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(created_at, id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var units []models.Unit
	if err := q.Order("created_at ASC, id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&units).Error; err != nil {
		return nil, err
	}
	return units, nil
}

func (r *repository) CountByStatus(ctx context.Context, campaignID uuid.UUID) (map[enums.UnitStatus]int64, error) {
	type row struct {
		Status enums.UnitStatus
		Total  int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).
		Model(&models.Unit{}).
		Select("status, COUNT(*) AS total").
		Where("campaign_id = ?", campaignID).
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[enums.UnitStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}
