package middleware

import (
	"context"
	"net/http"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/http/response"
	"github.com/probelink/probelink/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

// TokenHeader carries the opaque session token on every protected call.
const TokenHeader = "X-Auth-Token"

// SessionAuth rejects requests without an active session with 401. Routes
// that must answer softly instead of rejecting validate inline in their
// handlers.
func SessionAuth(store *service.SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := store.Validate(r.Header.Get(TokenHeader))
			if sess == nil {
				response.Fail(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*domain.Session)
	return s, ok
}
