package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/avelkov/account-service/pkg/httputil"
)

// Recovery recovers from panics, logs the stack and answers with the
// standard 500 error envelope instead of crashing the server.
func Recovery(l *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.ErrorContext(r.Context(), "panic recovered",
						slog.Any("panic", rec),
						slog.String("stack", string(debug.Stack())),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
					)

					httputil.WriteErrorResponse(w, http.StatusInternalServerError,
						"INTERNAL_ERROR", "an internal error occurred")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
