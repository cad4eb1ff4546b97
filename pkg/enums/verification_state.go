package enums

import "fmt"

// VerificationState tracks how far a booker is through identity review.
// The labels are the exact values persisted and shown to admins.
type VerificationState string

const (
	VerificationStateNotVerified VerificationState = "Not Verified"
	VerificationStateAwaiting    VerificationState = "Awaiting Verification"
	VerificationStateVerified    VerificationState = "Verified"
)

var validVerificationStates = []VerificationState{
	VerificationStateNotVerified,
	VerificationStateAwaiting,
	VerificationStateVerified,
}

// IsValid reports whether the value matches a canonical verification state.
func (s VerificationState) IsValid() bool {
	for _, candidate := range validVerificationStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVerificationState converts raw input into VerificationState.
func ParseVerificationState(value string) (VerificationState, error) {
	for _, candidate := range validVerificationStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification state %q", value)
}
