package models

import (
	"time"

	"github.com/google/uuid"
)

// Assignment binds a unit to a resolved hierarchy path. At most one
// non-retired assignment exists per unit (partial unique index). Path and
// contact fields mutate only through reassignment, which the payment lock
// forbids once money has been recorded.
type Assignment struct {
	ID            uuid.UUID   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UnitID        uuid.UUID   `gorm:"column:unit_id;type:uuid;not null;index"`
	PathValueIDs  []uuid.UUID `gorm:"column:path_value_ids;type:jsonb;serializer:json;not null"`
	TopValueID    uuid.UUID   `gorm:"column:top_value_id;type:uuid;not null;index"`
	ContactMobile *string     `gorm:"column:contact_mobile"`
	Notes         *string     `gorm:"column:notes"`
	AssignedBy    string      `gorm:"column:assigned_by;not null"`
	AssignedAt    time.Time   `gorm:"column:assigned_at;not null"`
	IsExtraUnit   bool        `gorm:"column:is_extra_unit;not null;default:false"`
	Retired       bool        `gorm:"column:retired;not null;default:false"`
	CreatedAt     time.Time   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time   `gorm:"column:updated_at;autoUpdateTime"`
}
