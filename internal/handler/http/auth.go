package http

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/avelkov/account-service/internal/domain"
	"github.com/avelkov/account-service/internal/service"
	"github.com/avelkov/account-service/internal/storage"
	apperrors "github.com/avelkov/account-service/pkg/errors"
	"github.com/avelkov/account-service/pkg/httputil"
	"github.com/avelkov/account-service/pkg/validator"
)

// maxUploadSize bounds the multipart form held in memory during register.
const maxUploadSize = 10 << 20 // 10 MiB

const refreshTokenCookie = "refreshToken"

// UserService is the part of the account service the HTTP layer depends on.
type UserService interface {
	Register(ctx context.Context, in service.RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in service.LoginInput) (*domain.User, *domain.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ResolveAccessToken(ctx context.Context, accessToken string) (*domain.User, error)
	CurrentUser(ctx context.Context, userID string) (*domain.User, error)
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	UpdateAccount(ctx context.Context, userID string, in service.UpdateAccountInput) (*domain.User, error)
}

// AuthHandler serves registration and the session lifecycle endpoints.
type AuthHandler struct {
	svc    UserService
	logger *slog.Logger
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(svc UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, logger: logger}
}

type registerForm struct {
	FullName string `validate:"required"`
	Email    string `validate:"required,email"`
	UserName string `validate:"required"`
	Password string `validate:"required"`
}

// Register handles POST /register. The body is a multipart form with the
// profile fields, a mandatory avatar file and an optional coverImage file.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("request body must be a multipart form"), h.logger)
		return
	}

	form := registerForm{
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		UserName: r.FormValue("userName"),
		Password: r.FormValue("password"),
	}
	if err := validator.Validate(form); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	avatar, err := formFile(r, "avatar")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if avatar != nil {
		defer avatar.close()
	}
	if avatar == nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("avatar image is required"), h.logger)
		return
	}

	cover, err := formFile(r, "coverImage")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if cover != nil {
		defer cover.close()
	}

	in := service.RegisterInput{
		FullName: form.FullName,
		Email:    form.Email,
		UserName: form.UserName,
		Password: form.Password,
		Avatar:   avatar.file,
	}
	if cover != nil {
		in.CoverImage = cover.file
	}

	user, err := h.svc.Register(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, user, "user registered successfully")
}

type loginRequest struct {
	Email    string `json:"email" validate:"omitempty,email"`
	UserName string `json:"userName"`
	Password string `json:"password" validate:"required"`
}

type sessionResponse struct {
	User         *domain.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Login handles POST /login. Tokens are returned in the body and also set
// as HttpOnly cookies.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, pair, err := h.svc.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		UserName: req.UserName,
		Password: req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, sessionResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, "logged in successfully")
}

// Logout handles POST /logout for an authenticated user. The stored refresh
// token is removed and the session cookies are cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	if err := h.svc.Logout(r.Context(), user.ID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	clearSessionCookies(w)
	httputil.WriteSuccess(w, http.StatusOK, nil, "logged out successfully")
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh handles POST /refreshAccessToken. The refresh token is read from
// the refreshToken cookie or the JSON body; the rotated pair replaces both
// cookies.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFromRequest(r)
	if token == "" {
		httputil.WriteError(w, r, apperrors.Unauthorized("refresh token is required"), h.logger)
		return
	}

	pair, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	setSessionCookies(w, pair)
	httputil.WriteSuccess(w, http.StatusOK, pair, "access token refreshed")
}

func refreshTokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(refreshTokenCookie); err == nil && c.Value != "" {
		return c.Value
	}

	var req refreshRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		return ""
	}
	return req.RefreshToken
}

func setSessionCookies(w http.ResponseWriter, pair *domain.TokenPair) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, pair.AccessToken, 0))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, pair.RefreshToken, 0))
}

func clearSessionCookies(w http.ResponseWriter) {
	http.SetCookie(w, sessionCookie(accessTokenCookie, "", -1))
	http.SetCookie(w, sessionCookie(refreshTokenCookie, "", -1))
}

func sessionCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

type upload struct {
	file *storage.File
	src  multipart.File
}

func (u *upload) close() {
	_ = u.src.Close()
}

// formFile extracts a named file from the parsed multipart form. A missing
// file yields (nil, nil) so optional files stay optional.
func formFile(r *http.Request, field string) (*upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, apperrors.InvalidInput("invalid file in field " + field)
	}

	return &upload{
		file: &storage.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Content:     file,
		},
		src: file,
	}, nil
}
