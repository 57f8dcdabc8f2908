package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// ActivityLog is a write-only audit sink for human-readable strings emitted
// by the assignment flow. The core never queries it back.
type ActivityLog struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID   uuid.UUID          `gorm:"column:campaign_id;type:uuid;not null;index"`
	AssignmentID *uuid.UUID         `gorm:"column:assignment_id;type:uuid"`
	Kind         enums.ActivityKind `gorm:"column:kind;not null"`
	Message      string             `gorm:"column:message;not null"`
	ActorName    string             `gorm:"column:actor_name;not null"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
