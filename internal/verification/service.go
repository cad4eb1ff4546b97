package verification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/outbox/payloads"
	"github.com/spotixhq/spotix-backend/pkg/reference"
	"github.com/spotixhq/spotix-backend/pkg/storage"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type documentUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (*storage.UploadResult, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service runs the booker verification state machine:
// Not Verified -> Awaiting Verification -> Verified, no skips, no regression.
type Service interface {
	Get(ctx context.Context, actor *identity.Identity) (*models.VerificationRecord, error)
	SaveAddress(ctx context.Context, actor *identity.Identity, address string) (*models.VerificationRecord, error)
	AttachDocument(ctx context.Context, actor *identity.Identity, input AttachDocumentInput) (*models.VerificationRecord, error)
	PendingReview(ctx context.Context, actor *identity.Identity) ([]models.VerificationRecord, error)
	VerifyBooker(ctx context.Context, actor *identity.Identity, recordID uuid.UUID) (string, error)
}

// AttachDocumentInput carries one uploaded document for a slot.
type AttachDocumentInput struct {
	Slot        enums.DocumentSlot
	FileName    string
	ContentType string
	Data        []byte
}

type service struct {
	tx       txRunner
	repo     Repository
	uploader documentUploader
	outbox   outboxPublisher
}

// NewService builds the verification service.
func NewService(tx txRunner, repo Repository, uploader documentUploader, publisher outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("verification repository required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("document uploader required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, uploader: uploader, outbox: publisher}, nil
}

// Get returns the booker's record, creating an empty one on first touch.
func (s *service) Get(ctx context.Context, actor *identity.Identity) (*models.VerificationRecord, error) {
	if actor == nil || !actor.IsBooker {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booker role required")
	}
	return s.recordFor(ctx, actor.UserID)
}

func (s *service) SaveAddress(ctx context.Context, actor *identity.Identity, address string) (*models.VerificationRecord, error) {
	if actor == nil || !actor.IsBooker {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booker role required")
	}
	if address == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address required")
	}

	record, err := s.recordFor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	record.Address = address
	s.promoteIfComplete(record)

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// AttachDocument uploads the file through the tiered storage stack and stamps
// the slot completed. Re-upload of a slot is allowed until review.
func (s *service) AttachDocument(ctx context.Context, actor *identity.Identity, input AttachDocumentInput) (*models.VerificationRecord, error) {
	if actor == nil || !actor.IsBooker {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booker role required")
	}
	if !input.Slot.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown document slot %q", input.Slot))
	}
	if len(input.Data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document body required")
	}

	record, err := s.recordFor(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if record.State == enums.VerificationStateVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "record already verified")
	}

	key := fmt.Sprintf("verification/%s/%s/%s", actor.UserID, input.Slot, input.FileName)
	uploaded, err := s.uploader.Upload(ctx, key, input.ContentType, input.Data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing verification document")
	}

	now := time.Now()
	slot := record.Document(input.Slot)
	slot.URL = uploaded.URL
	slot.Provider = uploaded.Provider
	slot.Status = enums.DocumentStatusCompleted
	slot.UploadedAt = &now

	s.promoteIfComplete(record)

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) PendingReview(ctx context.Context, actor *identity.Identity) ([]models.VerificationRecord, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	return s.repo.ListByState(ctx, enums.VerificationStateAwaiting)
}

// VerifyBooker stamps the record and the user in one transaction: the record
// becomes Verified and the user gets is_verified plus the generated tag.
// All-or-nothing; a failure on either row rolls both back.
func (s *service) VerifyBooker(ctx context.Context, actor *identity.Identity, recordID uuid.UUID) (string, error) {
	if actor == nil || !actor.IsAdmin {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if recordID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "verification record id required")
	}

	var bookerTag string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		record, err := repo.FindByID(ctx, recordID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "verification record not found")
			}
			return err
		}

		switch record.State {
		case enums.VerificationStateVerified:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booker already verified")
		case enums.VerificationStateNotVerified:
			return pkgerrors.New(pkgerrors.CodeStateConflict, "record has not been submitted for review")
		}
		if !record.AllDocumentsCompleted() || record.Address == "" {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "documents or address incomplete")
		}

		tag, err := reference.BookerTag()
		if err != nil {
			return err
		}

		rows, err := repo.MarkVerified(ctx, recordID, actor.UserID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "record state changed during review")
		}

		rows, err = repo.StampUserVerified(ctx, record.BookerID, tag)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "user is not a booker")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookerVerified,
			AggregateType: enums.AggregateUser,
			AggregateID:   record.BookerID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: "admin"},
			Data: payloads.BookerVerifiedEvent{
				UserID:         record.BookerID,
				VerificationID: record.ID,
				BookerTag:      tag,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		bookerTag = tag
		return nil
	})
	if err != nil {
		return "", err
	}
	return bookerTag, nil
}

// promoteIfComplete moves Not Verified to Awaiting Verification when the file
// is complete. It never demotes: an already-awaiting or verified record keeps
// its state.
func (s *service) promoteIfComplete(record *models.VerificationRecord) {
	if record.State != enums.VerificationStateNotVerified {
		return
	}
	if record.AllDocumentsCompleted() && record.Address != "" {
		record.State = enums.VerificationStateAwaiting
	}
}

func (s *service) recordFor(ctx context.Context, bookerID uuid.UUID) (*models.VerificationRecord, error) {
	record, err := s.repo.FindByBookerID(ctx, bookerID)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = &models.VerificationRecord{
		BookerID: bookerID,
		State:    enums.VerificationStateNotVerified,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}
