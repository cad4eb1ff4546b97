package enums

import "fmt"

// DocumentSlot names the three verification document positions.
type DocumentSlot string

const (
	DocumentSlotNIN            DocumentSlot = "nin"
	DocumentSlotSelfie         DocumentSlot = "selfie"
	DocumentSlotProofOfAddress DocumentSlot = "proofOfAddress"
)

var validDocumentSlots = []DocumentSlot{
	DocumentSlotNIN,
	DocumentSlotSelfie,
	DocumentSlotProofOfAddress,
}

// IsValid reports whether the value matches a canonical document slot.
func (s DocumentSlot) IsValid() bool {
	for _, candidate := range validDocumentSlots {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDocumentSlot converts raw input into DocumentSlot.
func ParseDocumentSlot(value string) (DocumentSlot, error) {
	for _, candidate := range validDocumentSlots {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid document slot %q", value)
}

// DocumentStatus is the per-slot upload status.
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusCompleted DocumentStatus = "completed"
)

// IsValid reports whether the value matches the canonical document status enum.
func (s DocumentStatus) IsValid() bool {
	return s == DocumentStatusPending || s == DocumentStatusCompleted
}
