package payouts

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/events"
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

// payableFactor is what the booker receives after the fixed 20% platform fee.
var payableFactor = decimal.NewFromFloat(0.80)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type identityResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*identity.Identity, error)
}

type revenueDebitor interface {
	DebitRevenue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, amount decimal.Decimal) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PayableQuote is the read-only first phase of a payout.
type PayableQuote struct {
	Gross   decimal.Decimal `json:"gross"`
	Payable decimal.Decimal `json:"payable"`
}

// PendingPayout is what SendActionCode hands back to the issuing admin. The
// action code travels out of band; it is never stored anywhere else.
type PendingPayout struct {
	PayoutID   uuid.UUID       `json:"payout_id"`
	Reference  string          `json:"reference"`
	ActionCode string          `json:"action_code"`
	Gross      decimal.Decimal `json:"gross"`
	Payable    decimal.Decimal `json:"payable"`
}

// Service runs the two-phase payout authorization flow.
type Service interface {
	CalculatePayable(ctx context.Context, actor *identity.Identity, eventID uuid.UUID, gross decimal.Decimal) (*PayableQuote, error)
	SendActionCode(ctx context.Context, actor *identity.Identity, eventID uuid.UUID, gross decimal.Decimal) (*PendingPayout, error)
	VerifyActionCode(ctx context.Context, actor *identity.Identity, payoutID uuid.UUID, code string) (*models.Payout, error)
	ListForEvent(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) ([]models.Payout, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	events     events.Repository
	revenue    revenueDebitor
	identities identityResolver
	ledger     ledger.Service
	outbox     outboxPublisher
	metrics    *metrics.SettlementMetrics
}

// NewService builds the payouts service.
func NewService(
	tx txRunner,
	repo Repository,
	eventsRepo events.Repository,
	revenue revenueDebitor,
	identities identityResolver,
	ledgerSvc ledger.Service,
	publisher outboxPublisher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if eventsRepo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if revenue == nil {
		return nil, fmt.Errorf("revenue debitor required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		repo:       repo,
		events:     eventsRepo,
		revenue:    revenue,
		identities: identities,
		ledger:     ledgerSvc,
		outbox:     publisher,
		metrics:    settlementMetrics,
	}, nil
}

// Payable applies the fixed platform fee: gross * 0.8, rounded to 2 decimals.
func Payable(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(payableFactor).Round(2)
}

// CalculatePayable is phase one: a pure quote, no write.
func (s *service) CalculatePayable(ctx context.Context, actor *identity.Identity, eventID uuid.UUID, gross decimal.Decimal) (*PayableQuote, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := validateGross(gross, event.AvailableRevenue); err != nil {
		return nil, err
	}
	return &PayableQuote{Gross: gross, Payable: Payable(gross)}, nil
}

// SendActionCode is phase two: record the pending payout and hand the code to
// the caller for out-of-band relay. No money moves yet.
func (s *service) SendActionCode(ctx context.Context, actor *identity.Identity, eventID uuid.UUID, gross decimal.Decimal) (*PendingPayout, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := validateGross(gross, event.AvailableRevenue); err != nil {
		return nil, err
	}

	booker, err := s.identities.Resolve(ctx, event.BookerID)
	if err != nil {
		return nil, err
	}
	if !booker.IsVerified {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "booker must be verified before payouts")
	}

	actionCode, err := reference.ActionCode()
	if err != nil {
		return nil, err
	}
	payoutRef, err := reference.PayoutRecordReference()
	if err != nil {
		return nil, err
	}

	payout := &models.Payout{
		EventID:       event.ID,
		BookerID:      event.BookerID,
		PayoutAmount:  gross,
		PayableAmount: Payable(gross),
		ActionCode:    actionCode,
		Reference:     payoutRef,
		Status:        enums.PayoutStatusPending,
		IssuedBy:      actor.UserID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, payout); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: "admin"},
			Data: payloads.PayoutRequestedEvent{
				PayoutID:      payout.ID,
				EventID:       event.ID,
				BookerID:      event.BookerID,
				PayoutAmount:  gross,
				PayableAmount: payout.PayableAmount,
				Reference:     payoutRef,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	return &PendingPayout{
		PayoutID:   payout.ID,
		Reference:  payoutRef,
		ActionCode: actionCode,
		Gross:      gross,
		Payable:    payout.PayableAmount,
	}, nil
}

// VerifyActionCode is the settlement phase. A wrong code writes nothing and
// may be retried; a completed payout rejects even the right code.
func (s *service) VerifyActionCode(ctx context.Context, actor *identity.Identity, payoutID uuid.UUID, code string) (*models.Payout, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("payout_complete", time.Since(start)) }()

	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if payoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout id required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action code required")
	}

	var completed *models.Payout
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		payout, err := repo.FindByID(ctx, payoutID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
			}
			return err
		}
		if payout.Status == enums.PayoutStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "payout already completed")
		}
		if subtle.ConstantTimeCompare([]byte(payout.ActionCode), []byte(code)) != 1 {
			return pkgerrors.New(pkgerrors.CodeInvalidActionCode, "action code does not match")
		}

		now := time.Now()
		rows, err := repo.Complete(ctx, payout.ID, actor.UserID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyCompleted, "payout already completed")
		}

		// Funds leave by the gross amount; the fee is the platform's share
		// of revenue already held, not a second subtraction.
		if err := s.revenue.DebitRevenue(ctx, tx, payout.EventID, payout.PayoutAmount); err != nil {
			return err
		}

		metadata, _ := json.Marshal(map[string]string{"payout_reference": payout.Reference})
		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			Type:        enums.LedgerEventTypePayoutDebit,
			UserID:      payout.BookerID,
			EventID:     &payout.EventID,
			ActorUserID: actor.UserID,
			Amount:      payout.PayoutAmount,
			Reference:   payout.Reference,
			Metadata:    metadata,
		}); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCompleted,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: "admin"},
			Data: payloads.PayoutCompletedEvent{
				PayoutID:      payout.ID,
				EventID:       payout.EventID,
				BookerID:      payout.BookerID,
				PayoutAmount:  payout.PayoutAmount,
				PayableAmount: payout.PayableAmount,
				Reference:     payout.Reference,
				CompletedAt:   now,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		payout.Status = enums.PayoutStatusCompleted
		payout.CompletedBy = &actor.UserID
		payout.CompletedAt = &now
		completed = payout
		return nil
	})
	if err != nil {
		s.observeFailure("payout_complete", err)
		return nil, err
	}

	s.metrics.IncSuccess("payout_complete")
	s.metrics.ObserveAmount("payout_complete", completed.PayoutAmount.InexactFloat64())
	return completed, nil
}

func (s *service) ListForEvent(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) ([]models.Payout, error) {
	event, err := s.loadEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (event.BookerID != actor.UserID && !actor.IsAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout list is visible to the event owner and admins only")
	}
	return s.repo.ListByEvent(ctx, eventID)
}

func (s *service) loadEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, err
	}
	return event, nil
}

func (s *service) observeFailure(operation string, err error) {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncFailure(operation, code)
}

func validateGross(gross, available decimal.Decimal) error {
	if !gross.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "payout amount must be positive")
	}
	if gross.GreaterThan(available) {
		return pkgerrors.New(pkgerrors.CodeExceedsAvailable, "requested amount exceeds available revenue")
	}
	return nil
}
