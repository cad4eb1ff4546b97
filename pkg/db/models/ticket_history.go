package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketHistory is the buyer-facing purchase record, denormalized so the
// history list survives event edits.
type TicketHistory struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	EventID    uuid.UUID       `gorm:"column:event_id;type:uuid;not null"`
	EventTitle string          `gorm:"column:event_title;not null"`
	TicketType string          `gorm:"column:ticket_type;not null"`
	TicketID   string          `gorm:"column:ticket_id;not null;uniqueIndex"`
	Reference  string          `gorm:"column:reference;not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
