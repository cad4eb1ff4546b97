package middleware

import (
	"net/http"

	"github.com/spotixhq/spotix-backend/api/responses"
	pkgAuth "github.com/spotixhq/spotix-backend/pkg/auth"
	pkgerrors "github.com/spotixhq/spotix-backend/pkg/errors"
	"github.com/spotixhq/spotix-backend/pkg/logger"
)

// RequireAdmin rejects requests whose token does not carry the admin flag.
// Settlement handlers still re-check the user row before moving money.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireFlag(logg, func(claims *pkgAuth.AccessTokenClaims) bool {
		return claims.IsAdmin
	}, "admin role required")
}

// RequireAgent rejects requests whose token does not carry the agent flag.
func RequireAgent(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireFlag(logg, func(claims *pkgAuth.AccessTokenClaims) bool {
		return claims.IsAgent || claims.IsAdmin
	}, "agent role required")
}

// RequireBooker rejects requests whose token does not carry the booker flag.
func RequireBooker(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireFlag(logg, func(claims *pkgAuth.AccessTokenClaims) bool {
		return claims.IsBooker || claims.IsAdmin
	}, "booker role required")
}

func requireFlag(logg *logger.Logger, allowed func(*pkgAuth.AccessTokenClaims) bool, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil || !allowed(claims) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, message))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
