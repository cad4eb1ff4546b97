package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthCodeValidation is a single-use authorization code and its consumption
// record. Customer and ticket fields are snapshots taken at issue time; the
// unique index on code backs the first-writer-wins guarantee.
type AuthCodeValidation struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Code          string     `gorm:"column:code;not null;uniqueIndex"`
	CustomerName  string     `gorm:"column:customer_name;not null"`
	CustomerEmail string     `gorm:"column:customer_email;not null;default:''"`
	TicketID      string     `gorm:"column:ticket_id;not null;index"`
	AgentID       string     `gorm:"column:agent_id;not null;default:''"`
	Validated     bool       `gorm:"column:validated;not null;default:false"`
	ValidatedBy   *uuid.UUID `gorm:"column:validated_by;type:uuid"`
	ValidatedAt   *time.Time `gorm:"column:validated_at"`
	IssuedBy      uuid.UUID  `gorm:"column:issued_by;type:uuid;not null"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}
