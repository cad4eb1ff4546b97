package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Attendee is an issued ticket. One row per purchased seat; the ticket ID
// and reference are generated server side and never reused. Name and email
// are frozen at purchase time so later profile edits never change what the
// gate sees.
type Attendee struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID     uuid.UUID       `gorm:"column:event_id;type:uuid;not null;index"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	FullName    string          `gorm:"column:full_name;not null"`
	Email       string          `gorm:"column:email;not null"`
	TicketType  string          `gorm:"column:ticket_type;not null"`
	TicketID    string          `gorm:"column:ticket_id;not null;uniqueIndex"`
	Reference   string          `gorm:"column:reference;not null;uniqueIndex"`
	PricePaid   decimal.Decimal `gorm:"column:price_paid;type:numeric(14,2);not null"`
	CheckedIn   bool            `gorm:"column:checked_in;not null;default:false"`
	CheckedInAt *time.Time      `gorm:"column:checked_in_at"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
