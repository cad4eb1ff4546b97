package wallet

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	stripesdk "github.com/stripe/stripe-go/v81"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/ledger"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/logger"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type intentCreator interface {
	CreateTopUpIntent(ctx context.Context, userID string, amount decimal.Decimal, currency string) (*stripesdk.PaymentIntent, error)
}

// Service owns the buyer wallet: guarded debits for purchases, credits for
// settled top-ups, and read access.
type Service interface {
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error)
	BeginTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (*TopUpIntent, error)
	SettleTopUp(ctx context.Context, input SettleTopUpInput) error
}

// TopUpIntent is the client-facing handle for a pending Stripe payment.
type TopUpIntent struct {
	IntentID     string          `json:"intent_id"`
	ClientSecret string          `json:"client_secret"`
	Amount       decimal.Decimal `json:"amount"`
}

// SettleTopUpInput carries the verified webhook facts for a succeeded intent.
type SettleTopUpInput struct {
	IntentID string
	UserID   uuid.UUID
	Amount   decimal.Decimal
	Source   string
}

type service struct {
	tx      txRunner
	repo    Repository
	ledger  ledger.Service
	outbox  outboxPublisher
	intents intentCreator
	logg    *logger.Logger
}

// NewService builds the wallet service. The intent creator may be nil when
// card top-ups are disabled.
func NewService(tx txRunner, repo Repository, ledgerSvc ledger.Service, publisher outboxPublisher, intents intentCreator, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
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
		intents: intents,
		logg:    logg,
	}, nil
}

// Debit moves amount out of the wallet inside the caller's transaction. The
// guard lives in the UPDATE, so a zero row count after a successful existence
// check means the balance was short, not that the user vanished.
func (s *service) Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.Exists(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	rows, err := repo.Debit(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if rows == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInsufficientFunds, "wallet balance below debit amount")
	}

	return repo.Balance(ctx, userID)
}

func (s *service) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "credit amount must be positive")
	}

	repo := s.repo.WithTx(tx)
	rows, err := repo.Credit(ctx, userID, amount)
	if err != nil {
		return decimal.Zero, err
	}
	if rows == 0 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	return repo.Balance(ctx, userID)
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	if userID == uuid.Nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.Balance(ctx, userID)
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.LedgerEvent, error) {
	return s.ledger.HistoryForUser(ctx, userID)
}

// BeginTopUp opens a Stripe PaymentIntent for the amount. Nothing is
// credited until the signed webhook confirms the charge.
func (s *service) BeginTopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, currency string) (*TopUpIntent, error) {
	if s.intents == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "card top-ups are not configured")
	}
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	exists, err := s.repo.Exists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
	}

	intent, err := s.intents.CreateTopUpIntent(ctx, userID.String(), amount, currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating payment intent")
	}

	return &TopUpIntent{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       amount,
	}, nil
}

// SettleTopUp credits the wallet exactly once per intent id. Stripe retries
// webhooks, so a replay finds the ledger row and returns without moving money.
func (s *service) SettleTopUp(ctx context.Context, input SettleTopUpInput) error {
	if input.IntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "intent id required")
	}
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.Amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "top-up amount must be positive")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		recorded, err := repo.TopUpRecorded(ctx, input.IntentID)
		if err != nil {
			return err
		}
		if recorded {
			if s.logg != nil {
				s.logg.Info(ctx, fmt.Sprintf("top-up %s already settled, skipping", input.IntentID))
			}
			return nil
		}

		newBalance, err := s.Credit(ctx, tx, input.UserID, input.Amount)
		if err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]string{"source": input.Source})
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			Type:        enums.LedgerEventTypeWalletCredit,
			UserID:      input.UserID,
			ActorUserID: input.UserID,
			Amount:      input.Amount,
			Reference:   input.IntentID,
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletToppedUp,
			AggregateType: enums.AggregateUser,
			AggregateID:   input.UserID,
			Data: payloads.WalletToppedUpEvent{
				UserID:     input.UserID,
				Amount:     input.Amount,
				NewBalance: newBalance,
				Source:     input.Source,
			},
			Version: 1,
		})
	})
}
