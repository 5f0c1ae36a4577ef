package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stylebook/backend/internal/services"
)

type contextKey string

const ctxActorKey contextKey = "actor"

// TokenValidator resolves a bearer token to the caller's id and role.
type TokenValidator interface {
	Validate(token string) (uuid.UUID, string, error)
}

// ActorAuth authenticates requests by validating the Bearer token and puts
// the resulting services.Actor into the request context.
func ActorAuth(tokens TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := extractBearer(r)
			if raw == "" {
				writeError(w, http.StatusUnauthorized, "Missing or malformed Authorization header.")
				return
			}
			id, role, err := tokens.Validate(raw)
			if err != nil {
				logger.Debug("rejected bearer token", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusUnauthorized, "Invalid or expired token.")
				return
			}
			ctx := WithActor(r.Context(), services.Actor{ID: id, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromCtx returns the authenticated actor.
func ActorFromCtx(ctx context.Context) (services.Actor, bool) {
	a, ok := ctx.Value(ctxActorKey).(services.Actor)
	return a, ok
}

// WithActor returns a context carrying the given actor.
func WithActor(ctx context.Context, a services.Actor) context.Context {
	return context.WithValue(ctx, ctxActorKey, a)
}

func extractBearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "message": message, "data": nil})
}
