package models

import (
	"time"

	"github.com/google/uuid"
)

// DistributionValue is a node in the hierarchy forest. Level-1 values have no
// parent; deeper values must parent to a value of the immediately preceding
// level of the same campaign.
type DistributionValue struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	LevelID       uuid.UUID  `gorm:"column:level_id;type:uuid;not null;index"`
	Name          string     `gorm:"column:name;not null"`
	ParentValueID *uuid.UUID `gorm:"column:parent_value_id;type:uuid"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}
