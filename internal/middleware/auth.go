package middleware

import (
	"context"
	"net/http"

	"campus-market/internal/domain"
	"campus-market/internal/observability"
)

type contextKey string

const (
	SessionKey contextKey = "session"

	// SessionCookie carries the server session token.
	SessionCookie = "sessionid"
)

// Auth resolves the session cookie to a server session. Requests without a
// live session get a 401, which clients treat as "log in again".
func Auth(sessionRepo domain.ServerSessionRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				http.Error(w, `{"error":"Authentication credentials were not provided."}`, http.StatusUnauthorized)
				return
			}

			session, err := sessionRepo.GetByToken(r.Context(), cookie.Value)
			if err != nil {
				http.Error(w, `{"error":"Invalid or expired session"}`, http.StatusUnauthorized)
				return
			}

			ctx := WithSession(r.Context(), session)
			ctx = observability.WithUserEmail(ctx, session.Email)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSession(ctx context.Context) (*domain.ServerSession, bool) {
	session, ok := ctx.Value(SessionKey).(*domain.ServerSession)
	return session, ok
}

func WithSession(ctx context.Context, session *domain.ServerSession) context.Context {
	return context.WithValue(ctx, SessionKey, session)
}
