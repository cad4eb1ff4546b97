package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// LedgerEvent records an immutable money movement. Every settlement path
// appends one row per balance touched, inside the moving transaction.
type LedgerEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Type        enums.LedgerEventType `gorm:"column:type;type:ledger_event_type_enum;not null"`
	UserID      uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	EventID     *uuid.UUID            `gorm:"column:event_id;type:uuid;index"`
	ActorUserID uuid.UUID             `gorm:"column:actor_user_id;type:uuid;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:numeric(14,2);not null"`
	Reference   string                `gorm:"column:reference;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
