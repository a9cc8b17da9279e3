package middleware

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gearboxe-market/messaging/internal/directory"
	"github.com/gearboxe-market/messaging/internal/observability"
	"github.com/gearboxe-market/messaging/internal/transport"
)

// Identity swaps the token subject for the internal user id. Tokens carry
// the identity provider's subject, not our user id, so every request goes
// through the resolver before any handler runs.
func Identity(resolver directory.IdentityResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			subject := UserID(ctx)
			if subject == "" {
				transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "missing authenticated subject")
				return
			}

			user, err := resolver.ResolveUser(ctx, subject)
			if err != nil {
				if errors.Is(err, directory.ErrUserNotFound) {
					transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "unknown principal")
					return
				}
				observability.GetLogger(ctx).Error("identity: resolve principal", zap.Error(err))
				transport.WriteError(w, http.StatusInternalServerError, "internal_error", "something went wrong")
				return
			}

			next.ServeHTTP(w, r.WithContext(InjectUserID(ctx, user.ID)))
		})
	}
}
