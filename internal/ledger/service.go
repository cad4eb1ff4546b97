package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// Service defines operations that record immutable money movements.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	HistoryForUser(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error)
	HistoryForEvent(ctx context.Context, eventID uuid.UUID) ([]models.LedgerEvent, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
// EventID is nil for movements that touch no event revenue account.
type RecordLedgerEventInput struct {
	Type        enums.LedgerEventType `json:"type"`
	UserID      uuid.UUID             `json:"user_id"`
	EventID     *uuid.UUID            `json:"event_id"`
	ActorUserID uuid.UUID             `json:"actor_user_id"`
	Amount      decimal.Decimal       `json:"amount"`
	Reference   string                `json:"reference"`
	Metadata    json.RawMessage       `json:"metadata"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent appends one ledger row. It runs inside the caller's transaction
// when one is given so the audit row commits with the balance it describes.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.UserID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	if input.ActorUserID == uuid.Nil {
		return nil, fmt.Errorf("actor user id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("ledger amount must be positive")
	}

	event := &models.LedgerEvent{
		Type:        input.Type,
		UserID:      input.UserID,
		EventID:     input.EventID,
		ActorUserID: input.ActorUserID,
		Amount:      input.Amount,
		Reference:   input.Reference,
		Metadata:    input.Metadata,
	}

	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) HistoryForUser(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user id is required")
	}
	return s.repo.ListByUserID(ctx, userID)
}

func (s *service) HistoryForEvent(ctx context.Context, eventID uuid.UUID) ([]models.LedgerEvent, error) {
	if eventID == uuid.Nil {
		return nil, fmt.Errorf("event id is required")
	}
	return s.repo.ListByEventID(ctx, eventID)
}
