package tickets

import (
	"context"
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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type identityResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*identity.Identity, error)
}

type revenueCreditor interface {
	CreditSale(ctx context.Context, tx *gorm.DB, eventID, ticketTypeID uuid.UUID, price decimal.Decimal) error
}

type walletDebitor interface {
	Debit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PurchaseInput identifies the buyer, the event and the priced tier.
type PurchaseInput struct {
	BuyerID         uuid.UUID
	EventID         uuid.UUID
	TicketTypeLabel string
}

// PurchaseResult is what the buyer walks away with.
type PurchaseResult struct {
	TicketID        string          `json:"ticket_id"`
	TicketReference string          `json:"ticket_reference"`
	NewBalance      decimal.Decimal `json:"new_balance"`
}

// Service issues tickets against buyer wallets.
type Service interface {
	Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.TicketHistory, error)
	Attendees(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) ([]models.Attendee, error)
	CheckIn(ctx context.Context, actor *identity.Identity, ticketID string) (*models.Attendee, error)
}

type service struct {
	tx         txRunner
	repo       Repository
	identities identityResolver
	events     events.Repository
	revenue    revenueCreditor
	wallet     walletDebitor
	ledger     ledger.Service
	outbox     outboxPublisher
	metrics    *metrics.SettlementMetrics
}

// NewService builds the ticket issuance service.
func NewService(
	tx txRunner,
	repo Repository,
	identities identityResolver,
	eventsRepo events.Repository,
	revenue revenueCreditor,
	wallet walletDebitor,
	ledgerSvc ledger.Service,
	publisher outboxPublisher,
	settlementMetrics *metrics.SettlementMetrics,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("tickets repository required")
	}
	if identities == nil {
		return nil, fmt.Errorf("identity resolver required")
	}
	if eventsRepo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	if revenue == nil {
		return nil, fmt.Errorf("revenue creditor required")
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet debitor required")
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
		identities: identities,
		events:     eventsRepo,
		revenue:    revenue,
		wallet:     wallet,
		ledger:     ledgerSvc,
		outbox:     publisher,
		metrics:    settlementMetrics,
	}, nil
}

// Purchase runs the whole issuance as one transaction: debit, ticket ids,
// attendee plus history rows, revenue credit, ledger, outbox. A failure after
// the debit step rolls everything back but is still reported as a partial
// purchase failure so operators can tell it apart from a clean rejection.
func (s *service) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveDuration("ticket_purchase", time.Since(start)) }()

	buyer, err := s.identities.Resolve(ctx, input.BuyerID)
	if err != nil {
		s.observeFailure("ticket_purchase", err)
		return nil, err
	}
	if input.EventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	if input.TicketTypeLabel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket type required")
	}

	var result *PurchaseResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		eventsRepo := s.events.WithTx(tx)
		ticketsRepo := s.repo.WithTx(tx)

		event, err := eventsRepo.FindByID(ctx, input.EventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
			}
			return err
		}
		if !event.IsPublished {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "event is not open for sale")
		}

		tier, err := eventsRepo.FindTicketType(ctx, event.ID, input.TicketTypeLabel)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "ticket type not found")
			}
			return err
		}

		price := tier.Price
		if event.IsFree {
			price = decimal.Zero
		}

		newBalance := decimal.Zero
		if price.IsPositive() {
			newBalance, err = s.wallet.Debit(ctx, tx, buyer.UserID, price)
			if err != nil {
				return err
			}
		} else {
			newBalance, err = s.currentBalance(ctx, tx, buyer.UserID)
			if err != nil {
				return err
			}
		}

		// Everything below happens after the debit. The transaction makes
		// partial states unreachable, but the error class stays distinct.
		ticketID, err := reference.TicketID()
		if err != nil {
			return partialFailure("generate_ticket_id", err)
		}
		ticketRef, err := reference.TicketReference()
		if err != nil {
			return partialFailure("generate_ticket_reference", err)
		}

		attendee := &models.Attendee{
			EventID:    event.ID,
			UserID:     buyer.UserID,
			FullName:   buyer.FullName,
			Email:      buyer.Email,
			TicketType: tier.Name,
			TicketID:   ticketID,
			Reference:  ticketRef,
			PricePaid:  price,
		}
		if err := ticketsRepo.CreateAttendee(ctx, attendee); err != nil {
			return partialFailure("create_attendee", err)
		}

		history := &models.TicketHistory{
			UserID:     buyer.UserID,
			EventID:    event.ID,
			EventTitle: event.Title,
			TicketType: tier.Name,
			TicketID:   ticketID,
			Reference:  ticketRef,
			Amount:     price,
		}
		if err := ticketsRepo.CreateHistory(ctx, history); err != nil {
			return partialFailure("create_ticket_history", err)
		}

		if err := s.revenue.CreditSale(ctx, tx, event.ID, tier.ID, price); err != nil {
			return partialFailure("credit_event_revenue", err)
		}

		if price.IsPositive() {
			metadata, _ := json.Marshal(map[string]string{"ticket_id": ticketID})
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
				Type:        enums.LedgerEventTypeWalletDebit,
				UserID:      buyer.UserID,
				EventID:     &event.ID,
				ActorUserID: buyer.UserID,
				Amount:      price,
				Reference:   ticketRef,
				Metadata:    metadata,
			}); err != nil {
				return partialFailure("record_wallet_debit", err)
			}
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
				Type:        enums.LedgerEventTypeRevenueCredit,
				UserID:      event.BookerID,
				EventID:     &event.ID,
				ActorUserID: buyer.UserID,
				Amount:      price,
				Reference:   ticketRef,
				Metadata:    metadata,
			}); err != nil {
				return partialFailure("record_revenue_credit", err)
			}
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTicketPurchased,
			AggregateType: enums.AggregateTicket,
			AggregateID:   attendee.ID,
			Actor:         &outbox.ActorRef{UserID: buyer.UserID, Role: "buyer"},
			Data: payloads.TicketPurchasedEvent{
				EventID:         event.ID,
				BuyerID:         buyer.UserID,
				TicketID:        ticketID,
				TicketReference: ticketRef,
				TicketType:      tier.Name,
				Amount:          price,
			},
			Version: 1,
		}); err != nil {
			return partialFailure("emit_outbox_event", err)
		}

		result = &PurchaseResult{
			TicketID:        ticketID,
			TicketReference: ticketRef,
			NewBalance:      newBalance,
		}
		s.metrics.IncSuccess("ticket_purchase")
		s.metrics.ObserveAmount("ticket_purchase", price.InexactFloat64())
		return nil
	})
	if err != nil {
		s.observeFailure("ticket_purchase", err)
		return nil, err
	}
	return result, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID) ([]models.TicketHistory, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListHistoryByUser(ctx, userID)
}

func (s *service) Attendees(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) ([]models.Attendee, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, err
	}
	if actor == nil || (event.BookerID != actor.UserID && !actor.IsAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "attendee list is visible to the event owner and admins only")
	}
	return s.repo.ListAttendeesByEvent(ctx, eventID)
}

// CheckIn consumes the ticket at the gate. Single-use: a second scan learns
// the ticket was already used.
func (s *service) CheckIn(ctx context.Context, actor *identity.Identity, ticketID string) (*models.Attendee, error) {
	if ticketID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id required")
	}

	attendee, err := s.repo.FindAttendeeByTicketID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, err
	}

	event, err := s.events.FindByID(ctx, attendee.EventID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (event.BookerID != actor.UserID && !actor.IsAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "check-in is restricted to the event owner and admins")
	}

	rows, err := s.repo.MarkCheckedIn(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "ticket already checked in")
	}

	return s.repo.FindAttendeeByTicketID(ctx, ticketID)
}

func (s *service) currentBalance(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (decimal.Decimal, error) {
	// A zero-price issuance still reports the wallet balance for parity
	// with paid purchases.
	type balanceReader interface {
		Balance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	}
	if reader, ok := s.wallet.(balanceReader); ok {
		return reader.Balance(ctx, userID)
	}
	return decimal.Zero, nil
}

func (s *service) observeFailure(operation string, err error) {
	code := string(pkgerrors.CodeInternal)
	if typed := pkgerrors.As(err); typed != nil {
		code = string(typed.Code())
	}
	s.metrics.IncFailure(operation, code)
}

func partialFailure(step string, err error) error {
	return pkgerrors.Wrap(pkgerrors.CodePartialPurchase, err, "purchase failed after wallet debit").
		WithDetails(map[string]string{"step": step})
}
