package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/spotixhq/spotix-backend/api/responses"
	"github.com/spotixhq/spotix-backend/api/validators"
	"github.com/spotixhq/spotix-backend/internal/enhance"
	"github.com/spotixhq/spotix-backend/internal/events"
	"github.com/spotixhq/spotix-backend/internal/identity"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/logger"
)

type eventTicketTypeRequest struct {
	Name     string `json:"name" validate:"required"`
	Price    string `json:"price" validate:"required"`
	Quantity *int   `json:"quantity" validate:"omitempty,min=1"`
}

type eventRequest struct {
	Title              string                   `json:"title" validate:"required"`
	Description        string                   `json:"description"`
	EventType          string                   `json:"event_type"`
	Venue              string                   `json:"venue"`
	City               string                   `json:"city"`
	IsFree             bool                     `json:"is_free"`
	StartsAt           *time.Time               `json:"starts_at"`
	EndsAt             *time.Time               `json:"ends_at"`
	TicketTypes        []eventTicketTypeRequest `json:"ticket_types" validate:"dive"`
	EnhanceDescription bool                     `json:"enhance_description"`
}

func (req eventRequest) toInput() (events.CreateEventInput, error) {
	input := events.CreateEventInput{
		Title:       validators.SanitizeString(req.Title, 200),
		Description: validators.SanitizeString(req.Description, 5000),
		EventType:   validators.SanitizeString(req.EventType, 100),
		Venue:       validators.SanitizeString(req.Venue, 300),
		City:        validators.SanitizeString(req.City, 100),
		IsFree:      req.IsFree,
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
	}
	for _, tier := range req.TicketTypes {
		price, err := parseTicketPrice(tier.Price)
		if err != nil {
			return events.CreateEventInput{}, err
		}
		input.TicketTypes = append(input.TicketTypes, events.TicketTypeInput{
			Name:     validators.SanitizeString(tier.Name, 100),
			Price:    price,
			Quantity: tier.Quantity,
		})
	}
	return input, nil
}

// Free tiers carry a zero price, so this is looser than ParseAmount.
func parseTicketPrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if price.Exponent() < -2 {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price supports at most two decimal places")
	}
	return price, nil
}

func eventIDParam(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "eventId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id")
	}
	return id, nil
}

// EventsList returns the public catalogue of published events.
func EventsList(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		listed, err := svc.ListPublished(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listed)
	}
}

// EventGet returns one event by id.
func EventGet(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		eventID, err := eventIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Get(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, event)
	}
}

// EventCreate opens a draft event for a verified booker. When requested, the
// description is polished by the AI enhancer; enhancement failures never
// block the create.
func EventCreate(svc events.Service, ids identity.Service, enhancer enhance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body eventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if body.EnhanceDescription && enhancer != nil {
			input.Description = enhancer.EnhanceDescription(r.Context(), enhance.Input{
				EventName:   input.Title,
				Venue:       input.Venue,
				City:        input.City,
				Description: input.Description,
			})
		}

		event, err := svc.Create(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, event)
	}
}

// EventUpdate edits a draft event owned by the caller.
func EventUpdate(svc events.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := eventIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body eventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		event, err := svc.Update(r.Context(), actor, eventID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, event)
	}
}

// EventPublish makes an event visible for ticket sales.
func EventPublish(svc events.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := eventIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Publish(r.Context(), actor, eventID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

// EventsMine lists the caller's own events, drafts included.
func EventsMine(svc events.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listed, err := svc.ListMine(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listed)
	}
}

// EventTicketTypes returns the priced tiers for an event.
func EventTicketTypes(svc events.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		eventID, err := eventIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		tiers, err := svc.TicketTypes(r.Context(), eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, tiers)
	}
}

// EventRevenue returns the revenue account snapshot for the event owner
// or an admin.
func EventRevenue(svc events.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "events service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := eventIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		revenue, err := svc.Revenue(r.Context(), actor, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, revenue)
	}
}

type enhanceDescriptionRequest struct {
	EventName   string `json:"event_name" validate:"required"`
	Venue       string `json:"venue"`
	City        string `json:"city"`
	Description string `json:"description" validate:"required"`
}

// EventEnhanceDescription polishes an event description without saving it.
func EventEnhanceDescription(enhancer enhance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if enhancer == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "enhancement service unavailable"))
			return
		}

		var body enhanceDescriptionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enhanced := enhancer.EnhanceDescription(r.Context(), enhance.Input{
			EventName:   body.EventName,
			Venue:       body.Venue,
			City:        body.City,
			Description: body.Description,
		})

		responses.WriteSuccess(w, map[string]string{"description": enhanced})
	}
}
