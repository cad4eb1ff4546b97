package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// AgentTransaction records one movement on an agent's float wallet or
// earnings balance, with before/after snapshots taken inside the same
// transaction that moved the money.
type AgentTransaction struct {
	ID              uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgentUserID     uuid.UUID                  `gorm:"column:agent_user_id;type:uuid;not null;index"`
	AgentID         string                     `gorm:"column:agent_id;not null;index"`
	Kind            enums.AgentTransactionKind `gorm:"column:kind;not null"`
	Amount          decimal.Decimal            `gorm:"column:amount;type:numeric(14,2);not null"`
	PreviousBalance decimal.Decimal            `gorm:"column:previous_balance;type:numeric(14,2);not null"`
	NewBalance      decimal.Decimal            `gorm:"column:new_balance;type:numeric(14,2);not null"`
	Reference       string                     `gorm:"column:reference;not null;uniqueIndex"`
	ActorUserID     uuid.UUID                  `gorm:"column:actor_user_id;type:uuid;not null"`
	CreatedAt       time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
