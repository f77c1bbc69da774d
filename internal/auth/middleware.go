package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/jayronsanchez/backend-blog-tutorial-linkedin/internal/model"

	"go.uber.org/zap"
)

// TokenHeader carries the bearer credential.
const TokenHeader = "authtoken"

type ctxKey struct{}

// WithIdentity attaches the resolved viewer to ctx.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the viewer attached by Authenticate, or the anonymous
// identity.
func FromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(ctxKey{}).(model.Identity)
	return id
}

// Authenticate resolves the optional authtoken header. A missing token
// continues as anonymous; a token that fails verification ends the request
// with 400.
func Authenticate(v Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get(TokenHeader)
			if token == "" {
				next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), model.Identity{})))
				return
			}

			id, err := v.Verify(r.Context(), token)
			if err != nil {
				logger.Info("Rejected auth token", zap.String("path", r.URL.Path), zap.Error(err))
				writeError(w, http.StatusBadRequest, ErrInvalidToken.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireIdentity rejects anonymous requests with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if FromContext(r.Context()).Anonymous() {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
