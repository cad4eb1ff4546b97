package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// Payout is one withdrawal from an event revenue account. The action code
// gates completion: funds only move when the code is verified.
type Payout struct {
	ID            uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID       uuid.UUID          `gorm:"column:event_id;type:uuid;not null;index"`
	BookerID      uuid.UUID          `gorm:"column:booker_id;type:uuid;not null;index"`
	PayoutAmount  decimal.Decimal    `gorm:"column:payout_amount;type:numeric(14,2);not null"`
	PayableAmount decimal.Decimal    `gorm:"column:payable_amount;type:numeric(14,2);not null"`
	ActionCode    string             `gorm:"column:action_code;not null;uniqueIndex"`
	Reference     string             `gorm:"column:reference;not null;uniqueIndex"`
	Status        enums.PayoutStatus `gorm:"column:status;not null;default:'pending'"`
	IssuedBy      uuid.UUID          `gorm:"column:issued_by;type:uuid;not null"`
	CompletedBy   *uuid.UUID         `gorm:"column:completed_by;type:uuid"`
	CompletedAt   *time.Time         `gorm:"column:completed_at"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
