package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/internal/ledger"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/metrics"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/outbox/payloads"
	"github.com/spotixhq/spotix-backend/pkg/reference"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Balances is the read view of an agent's two balances. The float wallet
// funds customer-facing operations; earnings accrue separately and only
// leave through withdrawals.
type Balances struct {
	AgentID  string          `json:"agent_id"`
	Wallet   decimal.Decimal `json:"wallet"`
	Earnings decimal.Decimal `json:"earnings"`
}

// Service manages agent onboarding and the two agent money streams.
type Service interface {
	Onboard(ctx context.Context, actor *identity.Identity, userID uuid.UUID) (string, error)
	FundWallet(ctx context.Context, actor *identity.Identity, userID uuid.UUID, amount decimal.Decimal) (*models.AgentTransaction, error)
	WithdrawEarnings(ctx context.Context, actor *identity.Identity, userID uuid.UUID, amount decimal.Decimal) (*models.AgentTransaction, error)
	Balances(ctx context.Context, actor *identity.Identity, userID uuid.UUID) (*Balances, error)
	Transactions(ctx context.Context, actor *identity.Identity, userID uuid.UUID, kind *enums.AgentTransactionKind) ([]models.AgentTransaction, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	ledger  ledger.Service
	outbox  outboxPublisher
	metrics *metrics.SettlementMetrics
}

// NewService builds the agents service.
func NewService(
	tx txRunner,
	repo Repository,
	ledgerSvc ledger.Service,
	publisher outboxPublisher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("agents repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		ledger:  ledgerSvc,
		outbox:  publisher,
		metrics: settlementMetrics,
	}, nil
}

// Onboard mints an agent tag for an existing user. Idempotent refusal: a user
// who is already an agent keeps their original tag.
func (s *service) Onboard(ctx context.Context, actor *identity.Identity, userID uuid.UUID) (string, error) {
	if actor == nil || !actor.IsAdmin {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if userID == uuid.Nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	var agentID string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return err
		}
		if user.IsAgent {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "user is already an agent")
		}

		tag, err := reference.AgentID()
		if err != nil {
			return err
		}

		rows, err := repo.MarkAgent(ctx, userID, tag)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "user is already an agent")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAgentOnboarded,
			AggregateType: enums.AggregateAgent,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: "admin"},
			Data: payloads.AgentOnboardedEvent{
				UserID:  userID,
				AgentID: tag,
				Email:   user.Email,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		agentID = tag
		return nil
	})
	if err != nil {
		return "", err
	}
	return agentID, nil
}

// FundWallet credits an agent's float wallet. The transaction row snapshots
// the balance before and after inside the same database transaction that
// moved the money.
func (s *service) FundWallet(ctx context.Context, actor *identity.Identity, userID uuid.UUID, amount decimal.Decimal) (*models.AgentTransaction, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("agent_fund", time.Since(start)) }()

	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "funding amount must be positive")
	}

	var transaction *models.AgentTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return err
		}
		if !user.IsAgent || user.AgentID == nil {
			return pkgerrors.New(pkgerrors.CodeNotAnAgent, "user is not an agent")
		}

		rows, err := repo.FundWallet(ctx, userID, amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeNotAnAgent, "user is not an agent")
		}

		ref, err := reference.TransactionReference()
		if err != nil {
			return err
		}

		transaction = &models.AgentTransaction{
			AgentUserID:     userID,
			AgentID:         *user.AgentID,
			Kind:            enums.AgentTransactionFunding,
			Amount:          amount,
			PreviousBalance: user.AgentWallet,
			NewBalance:      user.AgentWallet.Add(amount),
			Reference:       ref,
			ActorUserID:     actor.UserID,
		}
		if err := repo.CreateTransaction(ctx, transaction); err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]string{"agent_id": *user.AgentID})
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			Type:        enums.LedgerEventTypeAgentFunding,
			UserID:      userID,
			ActorUserID: actor.UserID,
			Amount:      amount,
			Reference:   ref,
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAgentFunded,
			AggregateType: enums.AggregateAgent,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: "admin"},
			Data: payloads.AgentFundedEvent{
				UserID:     userID,
				AgentID:    *user.AgentID,
				Amount:     amount,
				NewBalance: transaction.NewBalance,
				Reference:  ref,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.observeFailure("agent_fund", err)
		return nil, err
	}

	s.metrics.IncSuccess("agent_fund")
	s.metrics.ObserveAmount("agent_fund", amount.InexactFloat64())
	return transaction, nil
}

// WithdrawEarnings draws from the target agent's earnings balance. Admin
// initiated, like funding. The guard lives in the UPDATE; zero rows means
// the balance could not cover the amount.
func (s *service) WithdrawEarnings(ctx context.Context, actor *identity.Identity, userID uuid.UUID, amount decimal.Decimal) (*models.AgentTransaction, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("agent_withdraw", time.Since(start)) }()

	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}

	var transaction *models.AgentTransaction
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		user, err := repo.FindUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
			}
			return err
		}
		if !user.IsAgent || user.AgentID == nil {
			return pkgerrors.New(pkgerrors.CodeNotAnAgent, "user is not an agent")
		}

		rows, err := repo.WithdrawEarnings(ctx, userID, amount)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeExceedsEarnings, "withdrawal exceeds accumulated earnings")
		}

		ref, err := reference.AgentPayoutReference()
		if err != nil {
			return err
		}

		transaction = &models.AgentTransaction{
			AgentUserID:     userID,
			AgentID:         *user.AgentID,
			Kind:            enums.AgentTransactionPayout,
			Amount:          amount,
			PreviousBalance: user.AgentGain,
			NewBalance:      user.AgentGain.Sub(amount),
			Reference:       ref,
			ActorUserID:     actor.UserID,
		}
		if err := repo.CreateTransaction(ctx, transaction); err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]string{"agent_id": *user.AgentID})
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			Type:        enums.LedgerEventTypeAgentWithdrawal,
			UserID:      userID,
			ActorUserID: actor.UserID,
			Amount:      amount,
			Reference:   ref,
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAgentPaidOut,
			AggregateType: enums.AggregateAgent,
			AggregateID:   userID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: "admin"},
			Data: payloads.AgentPaidOutEvent{
				UserID:     userID,
				AgentID:    *user.AgentID,
				Amount:     amount,
				NewBalance: transaction.NewBalance,
				Reference:  ref,
			},
			Version: 1,
		})
	})
	if err != nil {
		s.observeFailure("agent_withdraw", err)
		return nil, err
	}

	s.metrics.IncSuccess("agent_withdraw")
	s.metrics.ObserveAmount("agent_withdraw", amount.InexactFloat64())
	return transaction, nil
}

func (s *service) Balances(ctx context.Context, actor *identity.Identity, userID uuid.UUID) (*Balances, error) {
	if err := authorizeAgentRead(actor, userID); err != nil {
		return nil, err
	}

	user, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	if !user.IsAgent || user.AgentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAnAgent, "user is not an agent")
	}

	return &Balances{
		AgentID:  *user.AgentID,
		Wallet:   user.AgentWallet,
		Earnings: user.AgentGain,
	}, nil
}

func (s *service) Transactions(ctx context.Context, actor *identity.Identity, userID uuid.UUID, kind *enums.AgentTransactionKind) ([]models.AgentTransaction, error) {
	if err := authorizeAgentRead(actor, userID); err != nil {
		return nil, err
	}
	if kind != nil && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction kind %q", *kind))
	}
	return s.repo.ListTransactions(ctx, userID, kind)
}

// Agents see their own records; admins see anyone's.
func authorizeAgentRead(actor *identity.Identity, userID uuid.UUID) error {
	if actor == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if actor.UserID != userID && !actor.IsAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "agent records are visible to the owner and admins only")
	}
	return nil
}

func (s *service) observeFailure(operation string, err error) {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncFailure(operation, code)
}
