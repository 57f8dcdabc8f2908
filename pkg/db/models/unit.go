package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dariomutua/fundraza-backend/pkg/enums"
)

// Unit is one distributable ticket book: a contiguous ticket range with a
// lifecycle status.
type Unit struct {
	ID         uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID uuid.UUID        `gorm:"column:campaign_id;type:uuid;not null;index"`
	BookNumber int              `gorm:"column:book_number;not null"`
	RangeStart int              `gorm:"column:range_start;not null"`
	RangeEnd   int              `gorm:"column:range_end;not null"`
	Status     enums.UnitStatus `gorm:"column:status;type:unit_status;not null;default:'available'"`
	CreatedAt  time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TicketCount returns the number of tickets the book spans.
func (u Unit) TicketCount() int {
	return u.RangeEnd - u.RangeStart + 1
}

// ExpectedAmountCents derives the settlement target from the campaign price.
// Never stored; always recomputed.
func (u Unit) ExpectedAmountCents(ticketPriceCents int) int {
	return u.TicketCount() * ticketPriceCents
}
