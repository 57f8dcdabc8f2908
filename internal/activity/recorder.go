package activity

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dariomutua/fundraza-backend/pkg/db/models"
	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// Entry is one audit line emitted by a lifecycle transition.
type Entry struct {
	CampaignID   uuid.UUID
	AssignmentID *uuid.UUID
	Kind         enums.ActivityKind
	Message      string
	ActorName    string
}

// Recorder appends audit entries. Record runs inside the caller's
// transaction so the audit line commits or rolls back with the transition
// it describes.
type Recorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) error
	List(ctx context.Context, campaignID uuid.UUID, limit int) ([]models.ActivityLog, error)
}

type recorder struct {
	db *gorm.DB
}

// NewRecorder returns an activity recorder bound to the provided database.
func NewRecorder(db *gorm.DB) Recorder {
	return &recorder{db: db}
}

func (r *recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	row := models.ActivityLog{
		CampaignID:   entry.CampaignID,
		AssignmentID: entry.AssignmentID,
		Kind:         entry.Kind,
		Message:      entry.Message,
		ActorName:    entry.ActorName,
	}
	return conn.WithContext(ctx).Create(&row).Error
}

func (r *recorder) List(ctx context.Context, campaignID uuid.UUID, limit int) ([]models.ActivityLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var rows []models.ActivityLog
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
