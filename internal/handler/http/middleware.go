package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/avelkov/account-service/internal/domain"
	apperrors "github.com/avelkov/account-service/pkg/errors"
	"github.com/avelkov/account-service/pkg/httputil"
	"github.com/avelkov/account-service/pkg/logger"
)

type contextKey string

const userContextKey contextKey = "current_user"

// accessTokenCookie is the cookie the session's access token rides on. The
// cookie takes precedence over the Authorization header when both are set.
const accessTokenCookie = "accessToken"

// UserResolver validates an access token and returns the user it belongs to.
type UserResolver func(ctx context.Context, accessToken string) (*domain.User, error)

// Authenticate guards routes that require a logged-in user. The access
// token is read from the accessToken cookie first, then from a bearer
// Authorization header. The resolved user is stored in the request context.
func Authenticate(resolve UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := accessTokenFromRequest(r)
			if token == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("authentication required"), nil)
				return
			}

			user, err := resolve(r.Context(), token)
			if err != nil {
				httputil.WriteError(w, r, err, nil)
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			ctx = logger.WithUserID(ctx, user.ID)

			// The request-scoped logger was built before authentication;
			// rebind it so log entries downstream carry the user id.
			reqLog := logger.FromContext(ctx).With(slog.String("user_id", user.ID))
			ctx = logger.NewContext(ctx, reqLog)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext returns the authenticated user placed by Authenticate,
// or nil when the request is anonymous.
func UserFromContext(ctx context.Context) *domain.User {
	user, _ := ctx.Value(userContextKey).(*domain.User)
	return user
}

func accessTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(accessTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

// ContentTypeJSON rejects JSON endpoints called with a non-JSON body.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteErrorResponse(w, http.StatusUnsupportedMediaType,
					"UNSUPPORTED_MEDIA_TYPE", "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
