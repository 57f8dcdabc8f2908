package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// CommissionRule is one independently toggleable reward rule for a campaign.
// Early and standard carry a threshold date; extra_units does not.
type CommissionRule struct {
	ID            uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID    uuid.UUID                `gorm:"column:campaign_id;type:uuid;not null;index"`
	Type          enums.CommissionRuleType `gorm:"column:type;type:commission_rule_type;not null"`
	Enabled       bool                     `gorm:"column:enabled;not null;default:false"`
	Percent       decimal.Decimal          `gorm:"column:percent;type:numeric(5,2);not null"`
	ThresholdDate *time.Time               `gorm:"column:threshold_date"`
	CreatedAt     time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
