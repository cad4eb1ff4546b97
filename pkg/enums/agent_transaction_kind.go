package enums

import "fmt"

// AgentTransactionKind separates the two disjoint agent money streams:
// admin funding of the float wallet and payouts drawn from earnings.
type AgentTransactionKind string

const (
	AgentTransactionFunding AgentTransactionKind = "funding"
	AgentTransactionPayout  AgentTransactionKind = "payout"
)

var validAgentTransactionKinds = []AgentTransactionKind{
	AgentTransactionFunding,
	AgentTransactionPayout,
}

// IsValid reports whether the value matches the canonical kind enum.
func (k AgentTransactionKind) IsValid() bool {
	for _, candidate := range validAgentTransactionKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseAgentTransactionKind converts raw input into AgentTransactionKind.
func ParseAgentTransactionKind(value string) (AgentTransactionKind, error) {
	for _, candidate := range validAgentTransactionKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent transaction kind %q", value)
}
