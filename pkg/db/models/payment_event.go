package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// PaymentEvent is an append-only ledger row. Book payments reference an
// assignment; recurring dues reference a member plus a YYYY-MM period key.
// A partial unique index guarantees at most one dues event per member/period.
type PaymentEvent struct {
	ID           uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	AssignmentID *uuid.UUID          `gorm:"column:assignment_id;type:uuid;index"`
	MemberID     *uuid.UUID          `gorm:"column:member_id;type:uuid;index"`
	PeriodKey    *string             `gorm:"column:period_key"`
	AmountCents  int                 `gorm:"column:amount_cents;not null"`
	Method       enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Kind         enums.PaymentKind   `gorm:"column:kind;type:payment_kind;not null"`
	PaidOn       time.Time           `gorm:"column:paid_on;not null"`
	CollectedBy  string              `gorm:"column:collected_by;not null"`
	ReturnReason *string             `gorm:"column:return_reason"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
}
