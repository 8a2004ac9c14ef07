package middleware

import (
	"log/slog"
	"net/http"

	"github.com/avelkov/account-service/pkg/logger"
)

// RequestLogger returns middleware that builds a request-scoped logger
// enriched with correlation_id and user_id, then stores it in context via
// logger.NewContext. Downstream handlers retrieve it with
// logger.FromContext(ctx).
//
// Mount AFTER RequestLogging, which sets the correlation_id. The auth
// guard runs later in the chain and rebinds the context logger with the
// authenticated user id itself; the X-User-ID header covers callers
// authenticated by an upstream proxy.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if logger.UserIDFromContext(ctx) == "" {
				if userID := r.Header.Get("X-User-ID"); userID != "" {
					ctx = logger.WithUserID(ctx, userID)
				}
			}

			enriched := logger.WithContext(ctx, base)
			ctx = logger.NewContext(ctx, enriched)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
