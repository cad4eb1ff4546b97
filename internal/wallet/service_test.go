package wallet

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/ledger"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeRepo struct {
	balance    decimal.Decimal
	exists     bool
	recorded   bool
	debitRows  int64
	creditRows int64
	debits     []decimal.Decimal
	credits    []decimal.Decimal
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) Exists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.exists, nil
}

func (f *fakeRepo) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return f.balance, nil
}

func (f *fakeRepo) Debit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	if f.debitRows > 0 {
		f.debits = append(f.debits, amount)
		f.balance = f.balance.Sub(amount)
	}
	return f.debitRows, nil
}

func (f *fakeRepo) Credit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	if f.creditRows > 0 {
		f.credits = append(f.credits, amount)
		f.balance = f.balance.Add(amount)
	}
	return f.creditRows, nil
}

func (f *fakeRepo) TopUpRecorded(ctx context.Context, reference string) (bool, error) {
	return f.recorded, nil
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

func newTestService(t *testing.T, repo *fakeRepo) (Service, *fakeLedger, *fakeOutbox) {
	t.Helper()
	ledgerFake := &fakeLedger{}
	outboxFake := &fakeOutbox{}
	svc, err := NewService(fakeTxRunner{}, repo, ledgerFake, outboxFake, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, ledgerFake, outboxFake
}

func TestDebitGuardedSuccess(t *testing.T) {
	repo := &fakeRepo{exists: true, balance: decimal.NewFromInt(500), debitRows: 1}
	svc, _, _ := newTestService(t, repo)

	newBalance, err := svc.Debit(context.Background(), nil, uuid.New(), decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !newBalance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected balance 300, got %s", newBalance)
	}
}

func TestDebitInsufficientFunds(t *testing.T) {
	repo := &fakeRepo{exists: true, balance: decimal.NewFromInt(100), debitRows: 0}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Debit(context.Background(), nil, uuid.New(), decimal.NewFromInt(200))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientFunds {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(repo.debits) != 0 {
		t.Fatal("no money should have moved")
	}
}

func TestDebitUnknownUser(t *testing.T) {
	repo := &fakeRepo{exists: false}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.Debit(context.Background(), nil, uuid.New(), decimal.NewFromInt(10))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDebitRejectsNonPositiveAmounts(t *testing.T) {
	repo := &fakeRepo{exists: true, debitRows: 1}
	svc, _, _ := newTestService(t, repo)

	for _, amount := range []decimal.Decimal{decimal.Zero, decimal.NewFromInt(-5)} {
		_, err := svc.Debit(context.Background(), nil, uuid.New(), amount)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %s, got %v", amount, err)
		}
	}
}

func TestSettleTopUpCreditsOnce(t *testing.T) {
	repo := &fakeRepo{exists: true, balance: decimal.NewFromInt(50), creditRows: 1}
	svc, ledgerFake, outboxFake := newTestService(t, repo)

	input := SettleTopUpInput{
		IntentID: "pi_123",
		UserID:   uuid.New(),
		Amount:   decimal.NewFromInt(100),
		Source:   "stripe",
	}
	if err := svc.SettleTopUp(context.Background(), input); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if len(repo.credits) != 1 || !repo.credits[0].Equal(input.Amount) {
		t.Fatalf("expected one credit of 100, got %v", repo.credits)
	}
	if len(ledgerFake.records) != 1 || ledgerFake.records[0].Type != enums.LedgerEventTypeWalletCredit {
		t.Fatalf("expected one wallet_credit ledger row, got %+v", ledgerFake.records)
	}
	if ledgerFake.records[0].Reference != "pi_123" {
		t.Fatalf("ledger reference should be the intent id, got %q", ledgerFake.records[0].Reference)
	}
	if len(outboxFake.events) != 1 || outboxFake.events[0].EventType != enums.EventWalletToppedUp {
		t.Fatalf("expected wallet_topped_up outbox event, got %+v", outboxFake.events)
	}
}

func TestSettleTopUpReplayIsNoop(t *testing.T) {
	repo := &fakeRepo{exists: true, balance: decimal.NewFromInt(150), creditRows: 1, recorded: true}
	svc, ledgerFake, outboxFake := newTestService(t, repo)

	err := svc.SettleTopUp(context.Background(), SettleTopUpInput{
		IntentID: "pi_123",
		UserID:   uuid.New(),
		Amount:   decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("replay should succeed silently: %v", err)
	}
	if len(repo.credits) != 0 || len(ledgerFake.records) != 0 || len(outboxFake.events) != 0 {
		t.Fatal("replay must not move money or emit events")
	}
}

func TestBeginTopUpWithoutStripe(t *testing.T) {
	repo := &fakeRepo{exists: true}
	svc, _, _ := newTestService(t, repo)

	_, err := svc.BeginTopUp(context.Background(), uuid.New(), decimal.NewFromInt(100), "ngn")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
