package authcodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/pkg/db/models"
	"github.com/spotixhq/spotix-backend/pkg/enums"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/outbox"
	"github.com/spotixhq/spotix-backend/pkg/outbox/payloads"
	"github.com/spotixhq/spotix-backend/pkg/reference"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type userLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type ticketLookup interface {
	FindAttendeeByTicketID(ctx context.Context, ticketID string) (*models.Attendee, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// IssueInput carries the customer snapshot an agent attaches to a code.
type IssueInput struct {
	TicketID      string
	CustomerName  string
	CustomerEmail string
}

// Service issues and consumes single-use authorization codes.
type Service interface {
	Issue(ctx context.Context, actor *identity.Identity, input IssueInput) (*models.AuthCodeValidation, error)
	Validate(ctx context.Context, actor *identity.Identity, code string) (*models.AuthCodeValidation, error)
	IssuedByAgent(ctx context.Context, actor *identity.Identity) ([]models.AuthCodeValidation, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	users   userLoader
	tickets ticketLookup
	outbox  outboxPublisher
}

// NewService builds the auth codes service.
func NewService(tx txRunner, repo Repository, users userLoader, tickets ticketLookup, publisher outboxPublisher) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("auth codes repository required")
	}
	if users == nil {
		return nil, fmt.Errorf("user loader required")
	}
	if tickets == nil {
		return nil, fmt.Errorf("ticket lookup required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, users: users, tickets: tickets, outbox: publisher}, nil
}

// Issue mints a code bound to a ticket and a customer snapshot. The snapshot
// is frozen at issue time; later profile edits do not touch it.
func (s *service) Issue(ctx context.Context, actor *identity.Identity, input IssueInput) (*models.AuthCodeValidation, error) {
	if actor == nil || !actor.IsAgent {
		return nil, pkgerrors.New(pkgerrors.CodeNotAnAgent, "agent role required")
	}
	if input.TicketID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id required")
	}
	if input.CustomerName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer name required")
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user.AgentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAnAgent, "agent tag missing")
	}

	if _, err := s.tickets.FindAttendeeByTicketID(ctx, input.TicketID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, err
	}

	code, err := reference.AuthCode()
	if err != nil {
		return nil, err
	}

	validation := &models.AuthCodeValidation{
		Code:          code,
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		TicketID:      input.TicketID,
		AgentID:       *user.AgentID,
		IssuedBy:      actor.UserID,
	}
	if err := s.repo.Create(ctx, validation); err != nil {
		return nil, err
	}
	return validation, nil
}

// Validate consumes a code. First caller wins; any later attempt, with any
// actor, gets ALREADY_VALIDATED.
func (s *service) Validate(ctx context.Context, actor *identity.Identity, code string) (*models.AuthCodeValidation, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "code required")
	}

	var consumed *models.AuthCodeValidation
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		validation, err := repo.FindByCode(ctx, code)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "code not found")
			}
			return err
		}

		now := time.Now()
		rows, err := repo.Consume(ctx, code, actor.UserID, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeAlreadyValidated, "code already validated")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAuthCodeConfirmed,
			AggregateType: enums.AggregateTicket,
			AggregateID:   validation.ID,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: actorRole(actor)},
			Data: payloads.AuthCodeConfirmedEvent{
				ValidationID: validation.ID,
				Code:         validation.Code,
				ValidatedBy:  actor.UserID,
				ValidatedAt:  now,
			},
			Version: 1,
		}); err != nil {
			return err
		}

		validation.Validated = true
		validation.ValidatedBy = &actor.UserID
		validation.ValidatedAt = &now
		consumed = validation
		return nil
	})
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (s *service) IssuedByAgent(ctx context.Context, actor *identity.Identity) ([]models.AuthCodeValidation, error) {
	if actor == nil || !actor.IsAgent {
		return nil, pkgerrors.New(pkgerrors.CodeNotAnAgent, "agent role required")
	}

	user, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user.AgentID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotAnAgent, "agent tag missing")
	}
	return s.repo.ListByAgent(ctx, *user.AgentID)
}

func actorRole(actor *identity.Identity) string {
	switch {
	case actor.IsAdmin:
		return "admin"
	case actor.IsAgent:
		return "agent"
	default:
		return "user"
	}
}
