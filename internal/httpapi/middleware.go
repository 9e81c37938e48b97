package httpapi

import (
	"context"
	"net/http"

	"budget-ledger-go/internal/auth"
	"budget-ledger-go/internal/models"

	"go.uber.org/zap"
)

type contextKey string

const userKey contextKey = "user"

func userFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// authenticate verifies the bearer token and resolves the caller to a local user
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))

		identity, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			zap.L().Debug("Rejected request", zap.String("path", r.URL.Path), zap.Error(err))
			writeError(w, err)
			return
		}

		user, err := s.ledger.ResolveUser(r.Context(), identity)
		if err != nil {
			writeError(w, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// limited charges weight against the caller before running next
func (s *Server) limited(weight int, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		if err := s.limiter.Allow(user.ExternalId, weight); err != nil {
			zap.L().Warn("Request throttled",
				zap.String("user_id", user.Id),
				zap.String("path", r.URL.Path),
				zap.Error(err))
			writeError(w, err)
			return
		}
		next(w, r)
	}
}
