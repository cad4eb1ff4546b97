package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/spotixhq/spotix-backend/pkg/enums"
)

// VerificationDocument is one uploaded identity document slot. Provider
// names the storage tier the upload actually landed on.
type VerificationDocument struct {
	URL        string               `gorm:"column:url;not null;default:''"`
	Provider   string               `gorm:"column:provider;not null;default:''"`
	Status     enums.DocumentStatus `gorm:"column:status;not null;default:'pending'"`
	UploadedAt *time.Time           `gorm:"column:uploaded_at"`
}

// VerificationRecord is a booker's identity review file. Exactly one row per
// booker; the three document slots are embedded with column prefixes.
type VerificationRecord struct {
	ID             uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BookerID       uuid.UUID               `gorm:"column:booker_id;type:uuid;not null;uniqueIndex"`
	State          enums.VerificationState `gorm:"column:state;not null;default:'Not Verified'"`
	NIN            VerificationDocument    `gorm:"embedded;embeddedPrefix:nin_"`
	Selfie         VerificationDocument    `gorm:"embedded;embeddedPrefix:selfie_"`
	ProofOfAddress VerificationDocument    `gorm:"embedded;embeddedPrefix:proof_of_address_"`
	Address        string                  `gorm:"column:address;not null;default:''"`
	ReviewedBy     *uuid.UUID              `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt     *time.Time              `gorm:"column:reviewed_at"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// Document returns the embedded slot for the given document position.
func (r *VerificationRecord) Document(slot enums.DocumentSlot) *VerificationDocument {
	switch slot {
	case enums.DocumentSlotNIN:
		return &r.NIN
	case enums.DocumentSlotSelfie:
		return &r.Selfie
	case enums.DocumentSlotProofOfAddress:
		return &r.ProofOfAddress
	}
	return nil
}

// AllDocumentsCompleted reports whether every slot has a completed upload.
func (r *VerificationRecord) AllDocumentsCompleted() bool {
	return r.NIN.Status == enums.DocumentStatusCompleted &&
		r.Selfie.Status == enums.DocumentStatusCompleted &&
		r.ProofOfAddress.Status == enums.DocumentStatusCompleted
}
