package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateEventInput captures what a booker supplies when listing an event.
type CreateEventInput struct {
	Title       string
	Description string
	EventType   string
	Venue       string
	City        string
	IsFree      bool
	StartsAt    *time.Time
	EndsAt      *time.Time
	TicketTypes []TicketTypeInput
}

// TicketTypeInput is one priced tier. Quantity nil means unlimited.
type TicketTypeInput struct {
	Name     string
	Price    decimal.Decimal
	Quantity *int
}

// Revenue is the event revenue account snapshot.
type Revenue struct {
	TicketsSold      int             `json:"tickets_sold"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	AvailableRevenue decimal.Decimal `json:"available_revenue"`
	TotalPaidOut     decimal.Decimal `json:"total_paid_out"`
}

// Service owns event listings and their revenue accounts.
type Service interface {
	Create(ctx context.Context, actor *identity.Identity, input CreateEventInput) (*models.Event, error)
	Update(ctx context.Context, actor *identity.Identity, eventID uuid.UUID, input CreateEventInput) (*models.Event, error)
	Publish(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) error
	Get(ctx context.Context, eventID uuid.UUID) (*models.Event, error)
	ListPublished(ctx context.Context) ([]models.Event, error)
	ListMine(ctx context.Context, actor *identity.Identity) ([]models.Event, error)
	TicketTypes(ctx context.Context, eventID uuid.UUID) ([]models.EventTicketType, error)
	Revenue(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) (*Revenue, error)
	CreditSale(ctx context.Context, tx *gorm.DB, eventID, ticketTypeID uuid.UUID, price decimal.Decimal) error
	DebitRevenue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, amount decimal.Decimal) error
	RecomputeAvailable(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) (*Revenue, error)
}

type service struct {
	tx   txRunner
	repo Repository
}

// NewService builds the events service.
func NewService(tx txRunner, repo Repository) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("events repository required")
	}
	return &service{tx: tx, repo: repo}, nil
}

func (s *service) Create(ctx context.Context, actor *identity.Identity, input CreateEventInput) (*models.Event, error) {
	if actor == nil || !actor.IsBooker {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booker role required")
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event title required")
	}
	if !input.IsFree && len(input.TicketTypes) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "paid events need at least one ticket tier")
	}
	for _, tier := range input.TicketTypes {
		if tier.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket tier name required")
		}
		if tier.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket price cannot be negative")
		}
	}

	event := &models.Event{
		BookerID:    actor.UserID,
		Title:       input.Title,
		Description: input.Description,
		EventType:   input.EventType,
		Venue:       input.Venue,
		City:        input.City,
		IsFree:      input.IsFree,
		StartsAt:    input.StartsAt,
		EndsAt:      input.EndsAt,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, event); err != nil {
			return err
		}
		for _, tier := range input.TicketTypes {
			if err := repo.CreateTicketType(ctx, &models.EventTicketType{
				EventID:  event.ID,
				Name:     tier.Name,
				Price:    tier.Price,
				Quantity: tier.Quantity,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) Update(ctx context.Context, actor *identity.Identity, eventID uuid.UUID, input CreateEventInput) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, actor, eventID)
	if err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event title required")
	}

	event.Title = input.Title
	event.Description = input.Description
	event.EventType = input.EventType
	event.Venue = input.Venue
	event.City = input.City
	event.StartsAt = input.StartsAt
	event.EndsAt = input.EndsAt

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) Publish(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) error {
	event, err := s.ownedEvent(ctx, actor, eventID)
	if err != nil {
		return err
	}
	if event.IsPublished {
		return nil
	}
	event.IsPublished = true
	return s.repo.Update(ctx, event)
}

func (s *service) Get(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	return s.findEvent(ctx, eventID)
}

func (s *service) ListPublished(ctx context.Context) ([]models.Event, error) {
	return s.repo.ListPublished(ctx)
}

func (s *service) ListMine(ctx context.Context, actor *identity.Identity) ([]models.Event, error) {
	if actor == nil || !actor.IsBooker {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booker role required")
	}
	return s.repo.ListByBooker(ctx, actor.UserID)
}

func (s *service) TicketTypes(ctx context.Context, eventID uuid.UUID) ([]models.EventTicketType, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	return s.repo.ListTicketTypes(ctx, eventID)
}

func (s *service) Revenue(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) (*Revenue, error) {
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if actor == nil || (event.BookerID != actor.UserID && !actor.IsAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "revenue is visible to the event owner and admins only")
	}
	return &Revenue{
		TicketsSold:      event.TicketsSold,
		TotalRevenue:     event.TotalRevenue,
		AvailableRevenue: event.AvailableRevenue,
		TotalPaidOut:     event.TotalPaidOut,
	}, nil
}

// CreditSale settles one ticket sale into the revenue account. It only runs
// inside the purchase transaction.
func (s *service) CreditSale(ctx context.Context, tx *gorm.DB, eventID, ticketTypeID uuid.UUID, price decimal.Decimal) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "revenue credit requires a transaction")
	}
	repo := s.repo.WithTx(tx)

	rows, err := repo.IncrementSold(ctx, ticketTypeID)
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "ticket tier is sold out")
	}

	rows, err = repo.CreditRevenue(ctx, eventID, price)
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return nil
}

// DebitRevenue withdraws from available revenue inside the payout-completion
// transaction. Zero rows from the guarded statement means the balance was
// short at write time.
func (s *service) DebitRevenue(ctx context.Context, tx *gorm.DB, eventID uuid.UUID, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "debit amount must be positive")
	}
	repo := s.repo.WithTx(tx)

	if _, err := repo.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return err
	}

	rows, err := repo.DebitRevenue(ctx, eventID, amount)
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientAvailable, "available revenue below requested amount")
	}
	return nil
}

// RecomputeAvailable rebuilds the cached balances from first principles:
// available = total_revenue - sum of completed payouts.
func (s *service) RecomputeAvailable(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) (*Revenue, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	var snapshot *Revenue
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		event, err := repo.FindByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
			}
			return err
		}

		paidOut, err := repo.SumCompletedPayouts(ctx, eventID)
		if err != nil {
			return err
		}
		available := event.TotalRevenue.Sub(paidOut)
		if available.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed payouts exceed total revenue")
		}

		if err := repo.SetRevenueCaches(ctx, eventID, available, paidOut); err != nil {
			return err
		}

		snapshot = &Revenue{
			TicketsSold:      event.TicketsSold,
			TotalRevenue:     event.TotalRevenue,
			AvailableRevenue: available,
			TotalPaidOut:     paidOut,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *service) ownedEvent(ctx context.Context, actor *identity.Identity, eventID uuid.UUID) (*models.Event, error) {
	if actor == nil || !actor.IsBooker {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booker role required")
	}
	event, err := s.findEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.BookerID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event belongs to another booker")
	}
	return event, nil
}

func (s *service) findEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	if eventID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event id required")
	}
	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, err
	}
	return event, nil
}
