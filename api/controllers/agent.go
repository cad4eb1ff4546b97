package controllers

import (
	"net/http"
	"strings"

	"github.com/spotixhq/spotix-backend/api/responses"
	"github.com/spotixhq/spotix-backend/api/validators"
	"github.com/spotixhq/spotix-backend/internal/agents"
	"github.com/spotixhq/spotix-backend/internal/authcodes"
	"github.com/spotixhq/spotix-backend/internal/identity"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/logger"
)

type authCodeIssueRequest struct {
	TicketID      string `json:"ticket_id" validate:"required"`
	CustomerName  string `json:"customer_name" validate:"required"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

// AgentAuthCodeIssue mints a single-use authorization code against a ticket.
func AgentAuthCodeIssue(svc authcodes.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth code service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body authCodeIssueRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		issued, err := svc.Issue(r.Context(), actor, authcodes.IssueInput{
			TicketID:      strings.TrimSpace(body.TicketID),
			CustomerName:  validators.SanitizeString(body.CustomerName, 200),
			CustomerEmail: strings.ToLower(strings.TrimSpace(body.CustomerEmail)),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, issued)
	}
}

// AgentAuthCodes lists the codes the calling agent has issued.
func AgentAuthCodes(svc authcodes.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth code service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listed, err := svc.IssuedByAgent(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listed)
	}
}

type authCodeValidateRequest struct {
	Code string `json:"code" validate:"required"`
}

// AuthCodeValidate consumes a single-use code. First caller wins; replays
// get ALREADY_VALIDATED.
func AuthCodeValidate(svc authcodes.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth code service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body authCodeValidateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		validated, err := svc.Validate(r.Context(), actor, strings.TrimSpace(body.Code))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, validated)
	}
}

// AgentBalances returns the calling agent's float wallet and earnings.
func AgentBalances(svc agents.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agent service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		balances, err := svc.Balances(r.Context(), actor, actor.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, balances)
	}
}

// AgentTransactions lists the calling agent's transactions.
func AgentTransactions(svc agents.Service, ids identity.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "agent service unavailable"))
			return
		}

		actor, err := resolveActor(r, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		kind, err := transactionKindFilter(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listed, err := svc.Transactions(r.Context(), actor, actor.UserID, kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listed)
	}
}
