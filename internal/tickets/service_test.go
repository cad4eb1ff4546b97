package tickets

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/events"
	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/internal/ledger"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
)

var ticketIDPattern = regexp.MustCompile(`^SPTX-TX-[0-9A-Z]{10}$`)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeTicketsRepo struct {
	attendees  []*models.Attendee
	history    []*models.TicketHistory
	historyErr error
	checkInRow int64
}

func (f *fakeTicketsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeTicketsRepo) CreateAttendee(ctx context.Context, attendee *models.Attendee) error {
	attendee.ID = uuid.New()
	f.attendees = append(f.attendees, attendee)
	return nil
}

func (f *fakeTicketsRepo) CreateHistory(ctx context.Context, history *models.TicketHistory) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	f.history = append(f.history, history)
	return nil
}

func (f *fakeTicketsRepo) FindAttendeeByTicketID(ctx context.Context, ticketID string) (*models.Attendee, error) {
	for _, attendee := range f.attendees {
		if attendee.TicketID == ticketID {
			return attendee, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeTicketsRepo) ListHistoryByUser(ctx context.Context, userID uuid.UUID) ([]models.TicketHistory, error) {
	return nil, nil
}

func (f *fakeTicketsRepo) ListAttendeesByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Attendee, error) {
	return nil, nil
}

func (f *fakeTicketsRepo) MarkCheckedIn(ctx context.Context, ticketID string) (int64, error) {
	return f.checkInRow, nil
}

type fakeIdentities struct {
	identity *identity.Identity
	err      error
}

func (f *fakeIdentities) Resolve(ctx context.Context, userID uuid.UUID) (*identity.Identity, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.identity, nil
}

type fakeEventsRepo struct {
	event *models.Event
	tier  *models.EventTicketType
}

func (f *fakeEventsRepo) WithTx(tx *gorm.DB) events.Repository { return f }

func (f *fakeEventsRepo) Create(ctx context.Context, event *models.Event) error { return nil }
func (f *fakeEventsRepo) Update(ctx context.Context, event *models.Event) error { return nil }

func (f *fakeEventsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return f.event, nil
}

func (f *fakeEventsRepo) ListByBooker(ctx context.Context, bookerID uuid.UUID) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeEventsRepo) ListPublished(ctx context.Context) ([]models.Event, error) { return nil, nil }

func (f *fakeEventsRepo) CreateTicketType(ctx context.Context, tier *models.EventTicketType) error {
	return nil
}

func (f *fakeEventsRepo) FindTicketType(ctx context.Context, eventID uuid.UUID, name string) (*models.EventTicketType, error) {
	if f.tier == nil || f.tier.Name != name {
		return nil, gorm.ErrRecordNotFound
	}
	return f.tier, nil
}

func (f *fakeEventsRepo) ListTicketTypes(ctx context.Context, eventID uuid.UUID) ([]models.EventTicketType, error) {
	return nil, nil
}

func (f *fakeEventsRepo) IncrementSold(ctx context.Context, ticketTypeID uuid.UUID) (int64, error) {
	return 1, nil
}

func (f *fakeEventsRepo) CreditRevenue(ctx context.Context, eventID uuid.UUID, price decimal.Decimal) (int64, error) {
	return 1, nil
}

func (f *fakeEventsRepo) DebitRevenue(ctx context.Context, eventID uuid.UUID, amount decimal.Decimal) (int64, error) {
	return 1, nil
}

func (f *fakeEventsRepo) SumCompletedPayouts(ctx context.Context, eventID uuid.UUID) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (f *fakeEventsRepo) SetRevenueCaches(ctx context.Context, eventID uuid.UUID, available, paidOut decimal.Decimal) error {
	return nil
}

type fakeRevenue struct {
	credits []decimal.Decimal
}

func (f *fakeRevenue) CreditSale(ctx context.Context, tx *gorm.DB, eventID, ticketTypeID uuid.UUID, price decimal.Decimal) error {
	f.credits = append(f.credits, price)
	return nil
}

type fakeWallet struct {
	balance  decimal.Decimal
	debitErr error
	debits   []decimal.Decimal
}

func (f *fakeWallet) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if f.debitErr != nil {
		return decimal.Zero, f.debitErr
	}
	f.debits = append(f.debits, amount)
	f.balance = f.balance.Sub(amount)
	return f.balance, nil
}

func (f *fakeWallet) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return f.balance, nil
}

type fakeLedger struct {
	records []ledger.RecordLedgerEventInput
}

func (f *fakeLedger) RecordEvent(ctx context.Context, tx *gorm.DB, input ledger.RecordLedgerEventInput) (*models.LedgerEvent, error) {
	f.records = append(f.records, input)
	return &models.LedgerEvent{}, nil
}

func (f *fakeLedger) HistoryForUser(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error) {
	return nil, nil
}

func (f *fakeLedger) HistoryForEvent(ctx context.Context, eventID uuid.UUID) ([]models.LedgerEvent, error) {
	return nil, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type purchaseFixture struct {
	svc     Service
	repo    *fakeTicketsRepo
	ids     *fakeIdentities
	wallet  *fakeWallet
	revenue *fakeRevenue
	ledger  *fakeLedger
	outbox  *fakeOutbox
	event   *models.Event
	buyerID uuid.UUID
}

func newPurchaseFixture(t *testing.T, price decimal.Decimal, free bool) *purchaseFixture {
	t.Helper()

	buyerID := uuid.New()
	event := &models.Event{
		ID:          uuid.New(),
		BookerID:    uuid.New(),
		Title:       "Night Show",
		IsPublished: true,
		IsFree:      free,
	}
	tier := &models.EventTicketType{
		ID:      uuid.New(),
		EventID: event.ID,
		Name:    "Regular",
		Price:   price,
	}

	repo := &fakeTicketsRepo{}
	ids := &fakeIdentities{identity: &identity.Identity{
		UserID:   buyerID,
		FullName: "Ada Obi",
		Email:    "ada@spotix.test",
	}}
	wallet := &fakeWallet{balance: decimal.NewFromInt(10000)}
	revenue := &fakeRevenue{}
	ledgerFake := &fakeLedger{}
	outboxFake := &fakeOutbox{}

	svc, err := NewService(
		fakeTxRunner{},
		repo,
		ids,
		&fakeEventsRepo{event: event, tier: tier},
		revenue,
		wallet,
		ledgerFake,
		outboxFake,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &purchaseFixture{
		svc:     svc,
		repo:    repo,
		ids:     ids,
		wallet:  wallet,
		revenue: revenue,
		ledger:  ledgerFake,
		outbox:  outboxFake,
		event:   event,
		buyerID: buyerID,
	}
}

func TestPurchaseHappyPath(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), false)

	result, err := fx.svc.Purchase(context.Background(), PurchaseInput{
		BuyerID:         fx.buyerID,
		EventID:         fx.event.ID,
		TicketTypeLabel: "Regular",
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	if !ticketIDPattern.MatchString(result.TicketID) {
		t.Fatalf("bad ticket id %q", result.TicketID)
	}
	if !result.NewBalance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected balance 5000, got %s", result.NewBalance)
	}
	if len(fx.repo.attendees) != 1 || len(fx.repo.history) != 1 {
		t.Fatalf("expected attendee and history rows")
	}
	if fx.repo.attendees[0].TicketID != fx.repo.history[0].TicketID {
		t.Fatal("attendee and history ticket ids must match")
	}
	if fx.repo.attendees[0].Reference != fx.repo.history[0].Reference {
		t.Fatal("attendee and history references must match")
	}
	if len(fx.revenue.credits) != 1 || !fx.revenue.credits[0].Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("expected one revenue credit of 5000, got %v", fx.revenue.credits)
	}
	if len(fx.ledger.records) != 2 {
		t.Fatalf("expected wallet_debit and revenue_credit ledger rows, got %d", len(fx.ledger.records))
	}
	if fx.ledger.records[0].Type != enums.LedgerEventTypeWalletDebit || fx.ledger.records[1].Type != enums.LedgerEventTypeRevenueCredit {
		t.Fatalf("unexpected ledger order: %+v", fx.ledger.records)
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventTicketPurchased {
		t.Fatalf("expected ticket_purchased outbox event")
	}
}

func TestPurchaseFreezesBuyerSnapshot(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), false)

	_, err := fx.svc.Purchase(context.Background(), PurchaseInput{
		BuyerID:         fx.buyerID,
		EventID:         fx.event.ID,
		TicketTypeLabel: "Regular",
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}

	attendee := fx.repo.attendees[0]
	if attendee.FullName != "Ada Obi" || attendee.Email != "ada@spotix.test" {
		t.Fatalf("attendee must snapshot the buyer, got %q %q", attendee.FullName, attendee.Email)
	}

	// A later profile edit must not change the stored record.
	fx.ids.identity.FullName = "Ada Renamed"
	fx.ids.identity.Email = "renamed@spotix.test"

	if attendee.FullName != "Ada Obi" || attendee.Email != "ada@spotix.test" {
		t.Fatalf("snapshot must be frozen at purchase time, got %q %q", attendee.FullName, attendee.Email)
	}
}

func TestPurchaseInsufficientFundsPropagates(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), false)
	fx.wallet.debitErr = pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance below debit amount")

	_, err := fx.svc.Purchase(context.Background(), PurchaseInput{
		BuyerID:         fx.buyerID,
		EventID:         fx.event.ID,
		TicketTypeLabel: "Regular",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(fx.repo.attendees) != 0 {
		t.Fatal("no ticket must be issued on a failed debit")
	}
}

func TestPurchasePostDebitFailureIsPartial(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), false)
	fx.repo.historyErr = errors.New("disk full")

	_, err := fx.svc.Purchase(context.Background(), PurchaseInput{
		BuyerID:         fx.buyerID,
		EventID:         fx.event.ID,
		TicketTypeLabel: "Regular",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodePartialPurchase {
		t.Fatalf("expected partial purchase failure, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["step"] != "create_ticket_history" {
		t.Fatalf("details should name the failed step, got %v", typed.Details())
	}
}

func TestPurchaseFreeEventSkipsDebit(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), true)

	result, err := fx.svc.Purchase(context.Background(), PurchaseInput{
		BuyerID:         fx.buyerID,
		EventID:         fx.event.ID,
		TicketTypeLabel: "Regular",
	})
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	if len(fx.wallet.debits) != 0 {
		t.Fatal("free events must not touch the wallet")
	}
	if len(fx.ledger.records) != 0 {
		t.Fatal("free events produce no money-movement ledger rows")
	}
	if !result.NewBalance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("balance should be untouched, got %s", result.NewBalance)
	}
}

func TestPurchaseUnpublishedEvent(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), false)
	fx.event.IsPublished = false

	_, err := fx.svc.Purchase(context.Background(), PurchaseInput{
		BuyerID:         fx.buyerID,
		EventID:         fx.event.ID,
		TicketTypeLabel: "Regular",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCheckInSingleUse(t *testing.T) {
	fx := newPurchaseFixture(t, decimal.NewFromInt(5000), false)
	fx.repo.attendees = []*models.Attendee{{
		ID:       uuid.New(),
		EventID:  fx.event.ID,
		TicketID: "SPTX-TX-12AB345678",
	}}
	fx.repo.checkInRow = 1
	owner := &identity.Identity{UserID: fx.event.BookerID, IsBooker: true}

	if _, err := fx.svc.CheckIn(context.Background(), owner, "SPTX-TX-12AB345678"); err != nil {
		t.Fatalf("check-in: %v", err)
	}

	fx.repo.checkInRow = 0
	_, err := fx.svc.CheckIn(context.Background(), owner, "SPTX-TX-12AB345678")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on reuse, got %v", err)
	}
}
