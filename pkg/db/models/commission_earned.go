package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// CommissionEarned records one matched rule at the moment of full settlement.
// Rows are never mutated or deleted by the normal flow. EarnerValueID is the
// top-level hierarchy value of the assignment's path, the grouping key for
// payout rollups.
type CommissionEarned struct {
	ID              uuid.UUID                `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssignmentID    uuid.UUID                `gorm:"column:assignment_id;type:uuid;not null;index"`
	UnitID          uuid.UUID                `gorm:"column:unit_id;type:uuid;not null"`
	RuleType        enums.CommissionRuleType `gorm:"column:rule_type;type:commission_rule_type;not null"`
	Percent         decimal.Decimal          `gorm:"column:percent;type:numeric(5,2);not null"`
	BaseAmountCents int                      `gorm:"column:base_amount_cents;not null"`
	CommissionCents int                      `gorm:"column:commission_cents;not null"`
	EarnerValueID   uuid.UUID                `gorm:"column:earner_value_id;type:uuid;not null;index"`
	PaidOn          time.Time                `gorm:"column:paid_on;not null"`
	CreatedAt       time.Time                `gorm:"column:created_at;autoCreateTime"`
}

// TableName overrides gorm's pluralizer, which would produce "commission_earneds".
func (CommissionEarned) TableName() string { return "commission_earned" }
