package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/spotixhq/spotix-backend/api/middleware"
	"github.com/spotixhq/spotix-backend/internal/identity"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
)

// currentUserID extracts and parses the authenticated user id from context.
func currentUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

// resolveActor re-reads the caller's user row. Settlement paths never trust
// the token's role snapshot.
func resolveActor(r *http.Request, ids identity.Service) (*identity.Identity, error) {
	if ids == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "identity service unavailable")
	}
	userID, err := currentUserID(r)
	if err != nil {
		return nil, err
	}
	return ids.Resolve(r.Context(), userID)
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
