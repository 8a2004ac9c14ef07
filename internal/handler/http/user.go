package http

import (
	"log/slog"
	"net/http"

	"github.com/avelkov/account-service/pkg/httputil"
	"github.com/avelkov/account-service/pkg/validator"

	"github.com/avelkov/account-service/internal/service"
)

// UserHandler serves the authenticated profile endpoints.
type UserHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewUserHandler creates the user handler.
func NewUserHandler(svc UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, logger: logger}
}

// Me handles GET /me and returns the current user's profile.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	current, err := h.svc.CurrentUser(r.Context(), user.ID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, current, "current user fetched successfully")
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// ChangePassword handles POST /change-password. A successful change revokes
// the active session, so the client has to log in again.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user := UserFromContext(r.Context())

	if err := h.svc.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearSessionCookies(w)
	httputil.WriteSuccess(w, http.StatusOK, nil, "password changed successfully")
}

type updateAccountRequest struct {
	FullName *string `json:"fullName"`
	Email    *string `json:"email" validate:"omitempty,email"`
}

// UpdateAccount handles PATCH /me for partial profile updates.
func (h *UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user := UserFromContext(r.Context())

	updated, err := h.svc.UpdateAccount(r.Context(), user.ID, service.UpdateAccountInput{
		FullName: req.FullName,
		Email:    req.Email,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, updated, "account updated successfully")
}
