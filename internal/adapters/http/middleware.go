package httpadapter

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/whitman-labs/parley/internal/domain"
	"github.com/whitman-labs/parley/internal/observability"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// withObservability attaches the chi request id and caller identity to the
// context so every downstream log line carries them.
func withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := middleware.GetReqID(ctx); reqID != "" {
			ctx = observability.WithRequestID(ctx, reqID)
		}

		start := time.Now()
		next.ServeHTTP(w, r.WithContext(ctx))
		observability.LoggerFromContext(ctx).Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start).String(),
		)
	})
}

// withIdentity resolves the caller from the X-User-ID header. Credential
// verification happens upstream; an absent header means no identity, which
// individual handlers reject where one is required.
func withIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get("X-User-ID")
		if user == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ctxKeyUser, domain.UserID(user))
		ctx = observability.WithUserID(ctx, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFromContext returns the caller identity, if any.
func userFromContext(ctx context.Context) (domain.UserID, bool) {
	user, ok := ctx.Value(ctxKeyUser).(domain.UserID)
	return user, ok && user != ""
}

// withCORS adds basic CORS headers to allow calls from the web front-end.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
