package models

import (
	"time"

	"github.com/google/uuid"
)

// DistributionLevel is one named tier of a campaign's location hierarchy.
// LevelNumber ordering is fixed once any unit is assigned against the campaign.
type DistributionLevel struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID  uuid.UUID `gorm:"column:campaign_id;type:uuid;not null;index"`
	LevelNumber int       `gorm:"column:level_number;not null"`
	Name        string    `gorm:"column:name;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}
