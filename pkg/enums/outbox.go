package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateUser   OutboxAggregateType = "user"
	AggregateEvent  OutboxAggregateType = "event"
	AggregateTicket OutboxAggregateType = "ticket"
	AggregatePayout OutboxAggregateType = "payout"
	AggregateAgent  OutboxAggregateType = "agent"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateUser,
	AggregateEvent,
	AggregateTicket,
	AggregatePayout,
	AggregateAgent,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventTicketPurchased   OutboxEventType = "ticket_purchased"
	EventPayoutRequested   OutboxEventType = "payout_requested"
	EventPayoutCompleted   OutboxEventType = "payout_completed"
	EventAgentOnboarded    OutboxEventType = "agent_onboarded"
	EventAgentFunded       OutboxEventType = "agent_funded"
	EventAgentPaidOut      OutboxEventType = "agent_paid_out"
	EventBookerVerified    OutboxEventType = "booker_verified"
	EventWalletToppedUp    OutboxEventType = "wallet_topped_up"
	EventAuthCodeConfirmed OutboxEventType = "auth_code_confirmed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventTicketPurchased,
	EventPayoutRequested,
	EventPayoutCompleted,
	EventAgentOnboarded,
	EventAgentFunded,
	EventAgentPaidOut,
	EventBookerVerified,
	EventWalletToppedUp,
	EventAuthCodeConfirmed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}
