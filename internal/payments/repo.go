package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// Repository manages the append-only payment event ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.PaymentEvent) error
	CreateBatch(ctx context.Context, events []models.PaymentEvent) error
	ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.PaymentEvent, error)
	// SumCountable totals partial and full events; returns and dues never
	// contribute to an assignment's balance.
	SumCountable(ctx context.Context, assignmentID uuid.UUID) (int, error)
	CountByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error)
	ExistsDues(ctx context.Context, memberID uuid.UUID, periodKey string) (bool, error)
	ListDuesByMember(ctx context.Context, memberID uuid.UUID) ([]models.PaymentEvent, error)
	// HasEventsTx is the payment-lock probe consumed by the assignment flow.
	HasEventsTx(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) CreateBatch(ctx context.Context, events []models.PaymentEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&events).Error
}

func (r *repository) ListByAssignment(ctx context.Context, assignmentID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) SumCountable(ctx context.Context, assignmentID uuid.UUID) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("assignment_id = ? AND kind IN ?", assignmentID,
			[]enums.PaymentKind{enums.PaymentKindPartial, enums.PaymentKindFull}).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (r *repository) CountByAssignment(ctx context.Context, assignmentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("assignment_id = ?", assignmentID).
		Count(&count).Error
	return count, err
}

func (r *repository) ExistsDues(ctx context.Context, memberID uuid.UUID, periodKey string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PaymentEvent{}).
		Where("member_id = ? AND period_key = ? AND kind = ?",
			memberID, periodKey, enums.PaymentKindDues).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListDuesByMember(ctx context.Context, memberID uuid.UUID) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	if err := r.db.WithContext(ctx).
		Where("member_id = ? AND kind = ?", memberID, enums.PaymentKindDues).
		Order("period_key ASC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) HasEventsTx(ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID) (bool, error) {
	count, err := r.WithTx(tx).CountByAssignment(ctx, assignmentID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
