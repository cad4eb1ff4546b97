package verification

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/storage"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepo struct {
	records      map[uuid.UUID]*models.VerificationRecord
	userStamps   map[uuid.UUID]string
	verifyRows   int64
	stampRows    int64
	savedRecords int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		records:    map[uuid.UUID]*models.VerificationRecord{},
		userStamps: map[uuid.UUID]string{},
		verifyRows: 1,
		stampRows:  1,
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Create(ctx context.Context, record *models.VerificationRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.records[record.ID] = record
	return nil
}

func (f *fakeRepo) Save(ctx context.Context, record *models.VerificationRecord) error {
	f.savedRecords++
	f.records[record.ID] = record
	return nil
}

func (f *fakeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.VerificationRecord, error) {
	record, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return record, nil
}

func (f *fakeRepo) FindByBookerID(ctx context.Context, bookerID uuid.UUID) (*models.VerificationRecord, error) {
	for _, record := range f.records {
		if record.BookerID == bookerID {
			return record, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) ListByState(ctx context.Context, state enums.VerificationState) ([]models.VerificationRecord, error) {
	return nil, nil
}

func (f *fakeRepo) MarkVerified(ctx context.Context, recordID, reviewerID uuid.UUID) (int64, error) {
	if f.verifyRows == 1 {
		if record, ok := f.records[recordID]; ok {
			record.State = enums.VerificationStateVerified
		}
	}
	return f.verifyRows, nil
}

func (f *fakeRepo) StampUserVerified(ctx context.Context, userID uuid.UUID, bookerTag string) (int64, error) {
	if f.stampRows == 1 {
		f.userStamps[userID] = bookerTag
	}
	return f.stampRows, nil
}

type fakeUploader struct {
	uploads int
	fail    bool
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, data []byte) (*storage.UploadResult, error) {
	f.uploads++
	if f.fail {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "storage down")
	}
	return &storage.UploadResult{URL: "https://cdn.spotix.test/" + key, Provider: "gcs"}, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func booker() *identity.Identity {
	return &identity.Identity{UserID: uuid.New(), IsBooker: true}
}

func admin() *identity.Identity {
	return &identity.Identity{UserID: uuid.New(), IsAdmin: true}
}

func newSvc(t *testing.T, repo *fakeRepo) (Service, *fakeUploader, *fakeOutbox) {
	t.Helper()
	uploader := &fakeUploader{}
	outboxFake := &fakeOutbox{}
	svc, err := NewService(fakeTxRunner{}, repo, uploader, outboxFake)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, uploader, outboxFake
}

func completedRecord(bookerID uuid.UUID, state enums.VerificationState) *models.VerificationRecord {
	doc := models.VerificationDocument{URL: "u", Provider: "gcs", Status: enums.DocumentStatusCompleted}
	return &models.VerificationRecord{
		ID:             uuid.New(),
		BookerID:       bookerID,
		State:          state,
		NIN:            doc,
		Selfie:         doc,
		ProofOfAddress: doc,
		Address:        "12 Allen Avenue, Ikeja",
	}
}

func TestAttachDocumentPromotesWhenComplete(t *testing.T) {
	repo := newFakeRepo()
	svc, uploader, _ := newSvc(t, repo)
	actor := booker()

	if _, err := svc.SaveAddress(context.Background(), actor, "12 Allen Avenue, Ikeja"); err != nil {
		t.Fatalf("save address: %v", err)
	}

	var record *models.VerificationRecord
	var err error
	for _, slot := range []enums.DocumentSlot{enums.DocumentSlotNIN, enums.DocumentSlotSelfie, enums.DocumentSlotProofOfAddress} {
		record, err = svc.AttachDocument(context.Background(), actor, AttachDocumentInput{
			Slot:        slot,
			FileName:    string(slot) + ".png",
			ContentType: "image/png",
			Data:        []byte("doc"),
		})
		if err != nil {
			t.Fatalf("attach %s: %v", slot, err)
		}
	}

	if uploader.uploads != 3 {
		t.Fatalf("expected 3 uploads, got %d", uploader.uploads)
	}
	if record.State != enums.VerificationStateAwaiting {
		t.Fatalf("expected Awaiting Verification, got %s", record.State)
	}
	if record.NIN.Provider != "gcs" || !strings.Contains(record.NIN.URL, "verification/") {
		t.Fatalf("slot not stamped: %+v", record.NIN)
	}
}

func TestAttachDocumentIncompleteStaysNotVerified(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newSvc(t, repo)
	actor := booker()

	record, err := svc.AttachDocument(context.Background(), actor, AttachDocumentInput{
		Slot:        enums.DocumentSlotNIN,
		FileName:    "nin.png",
		ContentType: "image/png",
		Data:        []byte("doc"),
	})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if record.State != enums.VerificationStateNotVerified {
		t.Fatalf("two missing slots must not promote, got %s", record.State)
	}
}

func TestAttachDocumentStorageFailure(t *testing.T) {
	repo := newFakeRepo()
	svc, uploader, _ := newSvc(t, repo)
	uploader.fail = true

	_, err := svc.AttachDocument(context.Background(), booker(), AttachDocumentInput{
		Slot:        enums.DocumentSlotSelfie,
		FileName:    "selfie.png",
		ContentType: "image/png",
		Data:        []byte("doc"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestVerifyBookerHappyPath(t *testing.T) {
	repo := newFakeRepo()
	bookerID := uuid.New()
	record := completedRecord(bookerID, enums.VerificationStateAwaiting)
	repo.records[record.ID] = record
	svc, _, outboxFake := newSvc(t, repo)

	tag, err := svc.VerifyBooker(context.Background(), admin(), record.ID)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !strings.HasPrefix(tag, "SPTX-B-") {
		t.Fatalf("unexpected booker tag %q", tag)
	}
	if repo.userStamps[bookerID] != tag {
		t.Fatal("user row must carry the same tag as the record")
	}
	if len(outboxFake.events) != 1 || outboxFake.events[0].EventType != enums.EventBookerVerified {
		t.Fatalf("expected booker_verified outbox event")
	}
}

func TestVerifyBookerTerminalState(t *testing.T) {
	repo := newFakeRepo()
	record := completedRecord(uuid.New(), enums.VerificationStateVerified)
	repo.records[record.ID] = record
	svc, _, _ := newSvc(t, repo)

	_, err := svc.VerifyBooker(context.Background(), admin(), record.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestVerifyBookerCannotSkipSubmission(t *testing.T) {
	repo := newFakeRepo()
	record := completedRecord(uuid.New(), enums.VerificationStateNotVerified)
	repo.records[record.ID] = record
	svc, _, _ := newSvc(t, repo)

	_, err := svc.VerifyBooker(context.Background(), admin(), record.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestVerifyBookerAdminOnly(t *testing.T) {
	svc, _, _ := newSvc(t, newFakeRepo())

	_, err := svc.VerifyBooker(context.Background(), booker(), uuid.New())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
