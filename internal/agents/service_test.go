package agents

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
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

type fakeAgentsRepo struct {
	users        map[uuid.UUID]*models.User
	transactions []models.AgentTransaction
}

func newFakeAgentsRepo() *fakeAgentsRepo {
	return &fakeAgentsRepo{users: map[uuid.UUID]*models.User{}}
}

func (f *fakeAgentsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeAgentsRepo) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeAgentsRepo) MarkAgent(ctx context.Context, userID uuid.UUID, agentID string) (int64, error) {
	user, ok := f.users[userID]
	if !ok || user.IsAgent {
		return 0, nil
	}
	user.IsAgent = true
	user.AgentID = &agentID
	return 1, nil
}

func (f *fakeAgentsRepo) FundWallet(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	user, ok := f.users[userID]
	if !ok || !user.IsAgent {
		return 0, nil
	}
	user.AgentWallet = user.AgentWallet.Add(amount)
	return 1, nil
}

func (f *fakeAgentsRepo) WithdrawEarnings(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (int64, error) {
	user, ok := f.users[userID]
	if !ok || !user.IsAgent || user.AgentGain.LessThan(amount) {
		return 0, nil
	}
	user.AgentGain = user.AgentGain.Sub(amount)
	return 1, nil
}

func (f *fakeAgentsRepo) CreateTransaction(ctx context.Context, transaction *models.AgentTransaction) error {
	f.transactions = append(f.transactions, *transaction)
	return nil
}

func (f *fakeAgentsRepo) ListTransactions(ctx context.Context, userID uuid.UUID, kind *enums.AgentTransactionKind) ([]models.AgentTransaction, error) {
	var out []models.AgentTransaction
	for _, transaction := range f.transactions {
		if transaction.AgentUserID != userID {
			continue
		}
		if kind != nil && transaction.Kind != *kind {
			continue
		}
		out = append(out, transaction)
	}
	return out, nil
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

func newAgentSvc(t *testing.T, repo *fakeAgentsRepo) (Service, *fakeLedger, *fakeOutbox) {
	t.Helper()
	ledgerFake := &fakeLedger{}
	outboxFake := &fakeOutbox{}
	svc, err := NewService(fakeTxRunner{}, repo, ledgerFake, outboxFake, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, ledgerFake, outboxFake
}

func agentUser(gain decimal.Decimal) *models.User {
	tag := "SPTA12345678AB"
	return &models.User{
		ID:        uuid.New(),
		Email:     "agent@spotix.test",
		IsAgent:   true,
		AgentID:   &tag,
		AgentGain: gain,
	}
}

func admin() *identity.Identity {
	return &identity.Identity{UserID: uuid.New(), IsAdmin: true}
}

func TestOnboardMintsAgentTag(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := &models.User{ID: uuid.New(), Email: "newagent@spotix.test"}
	repo.users[user.ID] = user
	svc, _, outboxFake := newAgentSvc(t, repo)

	tag, err := svc.Onboard(context.Background(), admin(), user.ID)
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if len(tag) != 14 || !strings.HasPrefix(tag, "SPTA") {
		t.Fatalf("unexpected agent tag %q", tag)
	}
	if !user.IsAgent || user.AgentID == nil || *user.AgentID != tag {
		t.Fatal("user row must carry the minted tag")
	}
	if len(outboxFake.events) != 1 || outboxFake.events[0].EventType != enums.EventAgentOnboarded {
		t.Fatalf("expected agent_onboarded event")
	}
}

func TestOnboardRejectsExistingAgent(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.Zero)
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)

	_, err := svc.Onboard(context.Background(), admin(), user.ID)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestFundWalletSnapshotsBalances(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.Zero)
	user.AgentWallet = decimal.NewFromInt(100)
	repo.users[user.ID] = user
	svc, ledgerFake, outboxFake := newAgentSvc(t, repo)

	transaction, err := svc.FundWallet(context.Background(), admin(), user.ID, decimal.NewFromInt(250))
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if !transaction.PreviousBalance.Equal(decimal.NewFromInt(100)) ||
		!transaction.NewBalance.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("snapshot mismatch: prev=%s new=%s", transaction.PreviousBalance, transaction.NewBalance)
	}
	if transaction.Kind != enums.AgentTransactionFunding {
		t.Fatalf("expected funding kind, got %s", transaction.Kind)
	}
	if len(ledgerFake.records) != 1 || ledgerFake.records[0].Type != enums.LedgerEventTypeAgentFunding {
		t.Fatalf("expected agent_funding ledger row")
	}
	if len(outboxFake.events) != 1 || outboxFake.events[0].EventType != enums.EventAgentFunded {
		t.Fatalf("expected agent_funded event")
	}
}

func TestFundWalletRejectsNonAgent(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := &models.User{ID: uuid.New(), Email: "buyer@spotix.test"}
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)

	_, err := svc.FundWallet(context.Background(), admin(), user.ID, decimal.NewFromInt(50))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotAnAgent {
		t.Fatalf("expected not an agent, got %v", err)
	}
}

func TestWithdrawEarningsGuardsBalance(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.NewFromInt(100))
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)

	_, err := svc.WithdrawEarnings(context.Background(), admin(), user.ID, decimal.NewFromInt(150))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeExceedsEarnings {
		t.Fatalf("expected exceeds earnings, got %v", err)
	}
	if !user.AgentGain.Equal(decimal.NewFromInt(100)) {
		t.Fatal("failed withdrawal must not move money")
	}
}

func TestWithdrawEarningsAdminInitiated(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.NewFromInt(500))
	repo.users[user.ID] = user
	svc, ledgerFake, outboxFake := newAgentSvc(t, repo)
	actor := admin()

	transaction, err := svc.WithdrawEarnings(context.Background(), actor, user.ID, decimal.NewFromInt(200))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if !strings.HasPrefix(transaction.Reference, "SPTX-PO-") {
		t.Fatalf("unexpected reference %q", transaction.Reference)
	}
	if !transaction.NewBalance.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected new balance 300, got %s", transaction.NewBalance)
	}
	if transaction.AgentUserID != user.ID || transaction.ActorUserID != actor.UserID {
		t.Fatal("transaction must record the target agent and the initiating admin")
	}
	if len(ledgerFake.records) != 1 || ledgerFake.records[0].Type != enums.LedgerEventTypeAgentWithdrawal {
		t.Fatalf("expected agent_withdrawal ledger row")
	}
	if len(outboxFake.events) != 1 || outboxFake.events[0].EventType != enums.EventAgentPaidOut {
		t.Fatalf("expected agent_paid_out event")
	}
}

func TestWithdrawEarningsRejectsNonAdmin(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.NewFromInt(500))
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)
	actor := &identity.Identity{UserID: user.ID, IsAgent: true}

	_, err := svc.WithdrawEarnings(context.Background(), actor, user.ID, decimal.NewFromInt(200))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-admin actor, got %v", err)
	}
	if !user.AgentGain.Equal(decimal.NewFromInt(500)) {
		t.Fatal("refused withdrawal must not move money")
	}
}

func TestWithdrawEarningsRejectsNonAgentTarget(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := &models.User{ID: uuid.New(), Email: "buyer@spotix.test"}
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)

	_, err := svc.WithdrawEarnings(context.Background(), admin(), user.ID, decimal.NewFromInt(50))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotAnAgent {
		t.Fatalf("expected not an agent, got %v", err)
	}
}

func TestTransactionsFilterByKind(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.NewFromInt(500))
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)
	actor := &identity.Identity{UserID: user.ID, IsAgent: true}

	if _, err := svc.WithdrawEarnings(context.Background(), admin(), user.ID, decimal.NewFromInt(50)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if _, err := svc.FundWallet(context.Background(), admin(), user.ID, decimal.NewFromInt(75)); err != nil {
		t.Fatalf("fund: %v", err)
	}

	kind := enums.AgentTransactionPayout
	transactions, err := svc.Transactions(context.Background(), actor, user.ID, &kind)
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(transactions) != 1 || transactions[0].Kind != enums.AgentTransactionPayout {
		t.Fatalf("expected one payout transaction, got %+v", transactions)
	}
}

func TestTransactionsVisibility(t *testing.T) {
	repo := newFakeAgentsRepo()
	user := agentUser(decimal.Zero)
	repo.users[user.ID] = user
	svc, _, _ := newAgentSvc(t, repo)

	other := &identity.Identity{UserID: uuid.New(), IsAgent: true}
	_, err := svc.Transactions(context.Background(), other, user.ID, nil)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
