package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TicketPurchasedEvent signals a completed wallet debit and ticket issuance.
type TicketPurchasedEvent struct {
	EventID         uuid.UUID       `json:"event_id"`
	BuyerID         uuid.UUID       `json:"buyer_id"`
	TicketID        string          `json:"ticket_id"`
	TicketReference string          `json:"ticket_reference"`
	TicketType      string          `json:"ticket_type"`
	Amount          decimal.Decimal `json:"amount"`
}

// PayoutRequestedEvent is emitted when a payout enters pending status.
type PayoutRequestedEvent struct {
	PayoutID      uuid.UUID       `json:"payout_id"`
	EventID       uuid.UUID       `json:"event_id"`
	BookerID      uuid.UUID       `json:"booker_id"`
	PayoutAmount  decimal.Decimal `json:"payout_amount"`
	PayableAmount decimal.Decimal `json:"payable_amount"`
	Reference     string          `json:"reference"`
}

// PayoutCompletedEvent is emitted when the action code is verified and
// funds leave the event revenue account.
type PayoutCompletedEvent struct {
	PayoutID      uuid.UUID       `json:"payout_id"`
	EventID       uuid.UUID       `json:"event_id"`
	BookerID      uuid.UUID       `json:"booker_id"`
	PayoutAmount  decimal.Decimal `json:"payout_amount"`
	PayableAmount decimal.Decimal `json:"payable_amount"`
	Reference     string          `json:"reference"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// AgentOnboardedEvent announces a freshly minted agent tag.
type AgentOnboardedEvent struct {
	UserID  uuid.UUID `json:"user_id"`
	AgentID string    `json:"agent_id"`
	Email   string    `json:"email"`
}

// AgentFundedEvent reports an admin funding of an agent float wallet.
type AgentFundedEvent struct {
	UserID     uuid.UUID       `json:"user_id"`
	AgentID    string          `json:"agent_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reference  string          `json:"reference"`
}

// AgentPaidOutEvent reports a withdrawal from an agent earnings balance.
type AgentPaidOutEvent struct {
	UserID     uuid.UUID       `json:"user_id"`
	AgentID    string          `json:"agent_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Reference  string          `json:"reference"`
}

// BookerVerifiedEvent is emitted when an admin verifies a booker.
type BookerVerifiedEvent struct {
	UserID         uuid.UUID `json:"user_id"`
	VerificationID uuid.UUID `json:"verification_id"`
	BookerTag      string    `json:"booker_tag"`
}

// WalletToppedUpEvent reports a confirmed wallet credit.
type WalletToppedUpEvent struct {
	UserID     uuid.UUID       `json:"user_id"`
	Amount     decimal.Decimal `json:"amount"`
	NewBalance decimal.Decimal `json:"new_balance"`
	Source     string          `json:"source"`
}

// AuthCodeConfirmedEvent reports a single-use code consumption.
type AuthCodeConfirmedEvent struct {
	ValidationID uuid.UUID `json:"validation_id"`
	Code         string    `json:"code"`
	ValidatedBy  uuid.UUID `json:"validated_by"`
	ValidatedAt  time.Time `json:"validated_at"`
}
