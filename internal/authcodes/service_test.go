package authcodes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeAuthCodesRepo struct {
	codes map[string]*models.AuthCodeValidation
}

func newFakeAuthCodesRepo() *fakeAuthCodesRepo {
	return &fakeAuthCodesRepo{codes: map[string]*models.AuthCodeValidation{}}
}

func (f *fakeAuthCodesRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAuthCodesRepo) Create(ctx context.Context, validation *models.AuthCodeValidation) error {
	if validation.ID == uuid.Nil {
		validation.ID = uuid.New()
	}
	clone := *validation
	f.codes[validation.Code] = &clone
	return nil
}

func (f *fakeAuthCodesRepo) FindByCode(ctx context.Context, code string) (*models.AuthCodeValidation, error) {
	validation, ok := f.codes[code]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *validation
	return &clone, nil
}

func (f *fakeAuthCodesRepo) ListByAgent(ctx context.Context, agentID string) ([]models.AuthCodeValidation, error) {
	var out []models.AuthCodeValidation
	for _, validation := range f.codes {
		if validation.AgentID == agentID {
			out = append(out, *validation)
		}
	}
	return out, nil
}

func (f *fakeAuthCodesRepo) Consume(ctx context.Context, code string, validatedBy uuid.UUID, at time.Time) (int64, error) {
	validation, ok := f.codes[code]
	if !ok || validation.Validated {
		return 0, nil
	}
	validation.Validated = true
	validation.ValidatedBy = &validatedBy
	validation.ValidatedAt = &at
	return 1, nil
}

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeTickets struct {
	known map[string]bool
}

func (f *fakeTickets) FindAttendeeByTicketID(ctx context.Context, ticketID string) (*models.Attendee, error) {
	if !f.known[ticketID] {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.Attendee{TicketID: ticketID}, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type authCodeFixture struct {
	svc    Service
	repo   *fakeAuthCodesRepo
	outbox *fakeOutbox
	agent  *identity.Identity
}

func newAuthCodeFixture(t *testing.T) *authCodeFixture {
	t.Helper()

	agentTag := "SPTA00000001XY"
	agentUserID := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*models.User{
		agentUserID: {ID: agentUserID, IsAgent: true, AgentID: &agentTag},
	}}
	tickets := &fakeTickets{known: map[string]bool{"SPTX-TX-12A34567B8": true}}
	repo := newFakeAuthCodesRepo()
	outboxFake := &fakeOutbox{}

	svc, err := NewService(fakeTxRunner{}, repo, users, tickets, outboxFake)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &authCodeFixture{
		svc:    svc,
		repo:   repo,
		outbox: outboxFake,
		agent:  &identity.Identity{UserID: agentUserID, IsAgent: true},
	}
}

func TestIssueSnapshotsCustomer(t *testing.T) {
	fx := newAuthCodeFixture(t)

	validation, err := fx.svc.Issue(context.Background(), fx.agent, IssueInput{
		TicketID:      "SPTX-TX-12A34567B8",
		CustomerName:  "Ada Obi",
		CustomerEmail: "ada@customer.test",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if len(validation.Code) != 22 || !strings.HasPrefix(validation.Code, "SP-Auth-") {
		t.Fatalf("unexpected code %q", validation.Code)
	}
	if validation.CustomerName != "Ada Obi" || validation.AgentID != "SPTA00000001XY" {
		t.Fatalf("snapshot mismatch: %+v", validation)
	}
	if validation.Validated {
		t.Fatal("a fresh code must not be validated")
	}
}

func TestIssueUnknownTicket(t *testing.T) {
	fx := newAuthCodeFixture(t)

	_, err := fx.svc.Issue(context.Background(), fx.agent, IssueInput{
		TicketID:     "SPTX-TX-99Z99999X9",
		CustomerName: "Ada Obi",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIssueRequiresAgent(t *testing.T) {
	fx := newAuthCodeFixture(t)

	_, err := fx.svc.Issue(context.Background(), &identity.Identity{UserID: uuid.New()}, IssueInput{
		TicketID:     "SPTX-TX-12A34567B8",
		CustomerName: "Ada Obi",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotAnAgent {
		t.Fatalf("expected not an agent, got %v", err)
	}
}

func TestValidateConsumesOnce(t *testing.T) {
	fx := newAuthCodeFixture(t)
	issued, err := fx.svc.Issue(context.Background(), fx.agent, IssueInput{
		TicketID:     "SPTX-TX-12A34567B8",
		CustomerName: "Ada Obi",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	validator := &identity.Identity{UserID: uuid.New(), IsAgent: true}
	consumed, err := fx.svc.Validate(context.Background(), validator, issued.Code)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !consumed.Validated || consumed.ValidatedBy == nil || *consumed.ValidatedBy != validator.UserID {
		t.Fatalf("consumption not stamped: %+v", consumed)
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventAuthCodeConfirmed {
		t.Fatalf("expected auth_code_confirmed event")
	}

	// Second attempt, even by the original validator, must fail.
	_, err = fx.svc.Validate(context.Background(), validator, issued.Code)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAlreadyValidated {
		t.Fatalf("expected already validated, got %v", err)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	fx := newAuthCodeFixture(t)

	_, err := fx.svc.Validate(context.Background(), fx.agent, "SP-Auth-doesnotexist00")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIssuedByAgentListsOwnCodes(t *testing.T) {
	fx := newAuthCodeFixture(t)
	if _, err := fx.svc.Issue(context.Background(), fx.agent, IssueInput{
		TicketID:     "SPTX-TX-12A34567B8",
		CustomerName: "Ada Obi",
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	codes, err := fx.svc.IssuedByAgent(context.Background(), fx.agent)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(codes) != 1 {
		t.Fatalf("expected one code, got %d", len(codes))
	}
}
