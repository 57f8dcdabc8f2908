package models

import (
	"time"

	"github.com/google/uuid"
)

// Member is a directory entry the dues ledger resolves against. The core
// reads members; it never creates them.
type Member struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FullName  string    `gorm:"column:full_name;not null"`
	Mobile    string    `gorm:"column:mobile;not null;unique"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
