// Package authn authenticates API requests with bearer tokens.
package authn

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
	"github.com/NickArm/Invoice-System-sub001/internal/auth"
	"github.com/NickArm/Invoice-System-sub001/internal/http/respond"
	"github.com/NickArm/Invoice-System-sub001/internal/user"
)

var (
	errMissingToken = fmt.Errorf("missing bearer token: %w", apperror.ErrUnauthorized)
	errBadToken     = fmt.Errorf("invalid or expired token: %w", apperror.ErrUnauthorized)
	errAdminOnly    = fmt.Errorf("admin access required: %w", apperror.ErrForbidden)
)

type Tokens interface {
	Parse(token string) (*auth.Claims, error)
}

type Users interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Middleware rejects requests without a valid token for an active account
// and stores the caller's Principal in the request context.
func Middleware(tokens Tokens, users Users) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearer(r)
			if !ok {
				respond.Error(w, r, errMissingToken)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				respond.Error(w, r, errBadToken)
				return
			}

			// The account may have been disabled or removed since the token was issued.
			u, err := users.Get(r.Context(), claims.UserID)
			if errors.Is(err, apperror.ErrNotFound) {
				respond.Error(w, r, errBadToken)
				return
			}

			if err != nil {
				respond.Error(w, r, err)
				return
			}

			if !u.IsActive {
				respond.Error(w, r, user.ErrInactive)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), auth.Principal{UserID: u.ID, Role: string(u.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Principal(r).IsAdmin() {
			respond.Error(w, r, errAdminOnly)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Principal returns the authenticated caller. It is the zero value on
// routes outside Middleware.
func Principal(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func bearer(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)

	return token, token != ""
}
