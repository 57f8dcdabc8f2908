package assignments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/pagination"
)

// Repository manages persistence for assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.Assignment) error
	FindByID(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error)
	// FindByIDForUpdate row-locks the assignment so the payment-lock check
	// and the subsequent mutation happen against a stable row.
	FindByIDForUpdate(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error)
	FindActiveByUnitID(ctx context.Context, unitID uuid.UUID) (*models.Assignment, error)
	Update(ctx context.Context, assignment *models.Assignment) error
	Retire(ctx context.Context, assignmentID uuid.UUID) error
	ListByCampaign(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Assignment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an assignment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repository) FindByID(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", assignmentID).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, assignmentID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&assignment, "id = ?", assignmentID).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) FindActiveByUnitID(ctx context.Context, unitID uuid.UUID) (*models.Assignment, error) {
	var assignment models.Assignment
	if err := r.db.WithContext(ctx).
		First(&assignment, "unit_id = ? AND retired = ?", unitID, false).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) Update(ctx context.Context, assignment *models.Assignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *repository) Retire(ctx context.Context, assignmentID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ?", assignmentID).
		Update("retired", true).Error
}

func (r *repository) ListByCampaign(ctx context.Context, campaignID uuid.UUID, params pagination.Params) ([]models.Assignment, error) {
	q := r.db.WithContext(ctx).
		Joins("JOIN units ON units.id = assignments.unit_id").
		Where("units.campaign_id = ? AND assignments.retired = ?", campaignID, false)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(assignments.created_at, assignments.id) > (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Assignment
	if err := q.Order("assignments.created_at ASC, assignments.id ASC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
