package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign is the immutable configuration a fundraising drive runs under.
// The reconciliation core treats price and sizing as read-only constants.
type Campaign struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name             string    `gorm:"column:name;not null"`
	TicketPriceCents int       `gorm:"column:ticket_price_cents;not null"`
	TicketsPerBook   int       `gorm:"column:tickets_per_book;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
