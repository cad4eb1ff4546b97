package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/spotixhq/spotix-backend/api/responses"
	"github.com/spotixhq/spotix-backend/api/validators"
	"github.com/spotixhq/spotix-backend/internal/events"
	"github.com/spotixhq/spotix-backend/internal/identity"
	"github.com/spotixhq/spotix-backend/internal/payouts"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/logger"
)

type payoutQuoteRequest struct {
	EventID string `json:"event_id" validate:"required,uuid"`
	Gross   string `json:"gross" validate:"required"`
}

// AdminPayoutCalculate quotes the payable amount for a gross figure without
// opening a payout.
func AdminPayoutCalculate(svc payouts.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body payoutQuoteRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		eventID, err := uuid.Parse(body.EventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid event id"))
			return
		}

		gross, err := validators.ParseAmount(body.Gross)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.CalculatePayable(r.Context(), actor, eventID, gross)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, quote)
	}
}

type payoutSendCodeRequest struct {
	Gross string `json:"gross" validate:"required"`
}

// AdminPayoutSendCode opens a pending payout and hands the action code to
// the admin. No money moves until the code comes back.
func AdminPayoutSendCode(svc payouts.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
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

		var body payoutSendCodeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		gross, err := validators.ParseAmount(body.Gross)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		pending, err := svc.SendActionCode(r.Context(), actor, eventID, gross)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, pending)
	}
}

type payoutVerifyRequest struct {
	ActionCode string `json:"action_code" validate:"required"`
}

// AdminPayoutVerify completes a pending payout when the action code matches.
func AdminPayoutVerify(svc payouts.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw := strings.TrimSpace(chi.URLParam(r, "payoutId"))
		if raw == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payout id is required"))
			return
		}
		payoutID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}

		var body payoutVerifyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payout, err := svc.VerifyActionCode(r.Context(), actor, payoutID, strings.TrimSpace(body.ActionCode))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, payout)
	}
}

// AdminEventPayouts lists every payout opened against an event.
func AdminEventPayouts(svc payouts.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
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

		listed, err := svc.ListForEvent(r.Context(), actor, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listed)
	}
}

// AdminEventReconcile recomputes the event's available revenue from the
// ledger and reports any drift it corrected.
func AdminEventReconcile(svc events.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
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

		revenue, err := svc.RecomputeAvailable(r.Context(), actor, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, revenue)
	}
}
