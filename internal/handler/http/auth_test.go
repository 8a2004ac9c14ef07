package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avelkov/account-service/internal/domain"
	"github.com/avelkov/account-service/internal/service"
	apperrors "github.com/avelkov/account-service/pkg/errors"
	"github.com/avelkov/account-service/pkg/httputil"
)

type mockUserService struct {
	mock.Mock
}

func (m *mockUserService) Register(ctx context.Context, in service.RegisterInput) (*domain.User, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) Login(ctx context.Context, in service.LoginInput) (*domain.User, *domain.TokenPair, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.User), args.Get(1).(*domain.TokenPair), args.Error(2)
}

func (m *mockUserService) Logout(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockUserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *mockUserService) ResolveAccessToken(ctx context.Context, accessToken string) (*domain.User, error) {
	args := m.Called(ctx, accessToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	args := m.Called(ctx, userID, currentPassword, newPassword)
	return args.Error(0)
}

func (m *mockUserService) UpdateAccount(ctx context.Context, userID string, in service.UpdateAccountInput) (*domain.User, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) httputil.Response {
	t.Helper()
	var resp httputil.Response
	require.NoError(t, json.Unmarshal(body.Bytes(), &resp))
	return resp
}

func multipartRegisterBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte("imagedata"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestRegister_Created(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	svc.On("Register", mock.Anything, mock.MatchedBy(func(in service.RegisterInput) bool {
		return in.Email == "a@b.com" && in.Avatar != nil && in.CoverImage == nil
	})).Return(&domain.User{ID: "u1", Email: "a@b.com", UserName: "newuser"}, nil)

	body, contentType := multipartRegisterBody(t,
		map[string]string{
			"fullName": "New User",
			"email":    "a@b.com",
			"userName": "newuser",
			"password": "x",
		},
		map[string]string{"avatar": "avatar.png"},
	)

	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeEnvelope(t, rec.Body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)
	svc.AssertExpectations(t)
}

func TestRegister_MissingAvatar(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	body, contentType := multipartRegisterBody(t,
		map[string]string{
			"fullName": "New User",
			"email":    "a@b.com",
			"userName": "newuser",
			"password": "x",
		},
		nil,
	)

	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec.Body)
	assert.False(t, resp.Success)
	svc.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestRegister_InvalidEmail(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	body, contentType := multipartRegisterBody(t,
		map[string]string{
			"fullName": "New User",
			"email":    "not-an-email",
			"userName": "newuser",
			"password": "x",
		},
		map[string]string{"avatar": "avatar.png"},
	)

	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeEnvelope(t, rec.Body)
	require.NotNil(t, resp.Errors)
	assert.Equal(t, "VALIDATION_ERROR", resp.Errors.Code)
}

func TestRegister_Conflict(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	svc.On("Register", mock.Anything, mock.Anything).
		Return(nil, apperrors.Conflict("user with this email or username already exists"))

	body, contentType := multipartRegisterBody(t,
		map[string]string{
			"fullName": "New User",
			"email":    "a@b.com",
			"userName": "newuser",
			"password": "x",
		},
		map[string]string{"avatar": "avatar.png"},
	)

	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin_OK(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	pair := &domain.TokenPair{AccessToken: "at", RefreshToken: "rt"}
	svc.On("Login", mock.Anything, service.LoginInput{Email: "a@b.com", Password: "pw"}).
		Return(&domain.User{ID: "u1", Email: "a@b.com"}, pair, nil)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeEnvelope(t, rec.Body)
	assert.True(t, resp.Success)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "at", data["accessToken"])
	assert.Equal(t, "rt", data["refreshToken"])

	cookies := rec.Result().Cookies()
	got := map[string]*http.Cookie{}
	for _, c := range cookies {
		got[c.Name] = c
	}
	require.Contains(t, got, "accessToken")
	require.Contains(t, got, "refreshToken")
	assert.Equal(t, "at", got["accessToken"].Value)
	assert.Equal(t, "rt", got["refreshToken"].Value)
	assert.True(t, got["accessToken"].HttpOnly)
	assert.True(t, got["accessToken"].Secure)
}

func TestLogin_MissingPassword(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
}

func TestLogin_UnknownUser(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	svc.On("Login", mock.Anything, mock.Anything).
		Return(nil, nil, apperrors.NotFound("user", "a@b.com"))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	svc.On("Login", mock.Anything, mock.Anything).
		Return(nil, nil, apperrors.Unauthorized("invalid credentials"))

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.com","password":"bad"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout_ClearsCookies(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	svc.On("Logout", mock.Anything, "u1").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	ctx := context.WithValue(req.Context(), userContextKey, &domain.User{ID: "u1"})
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value, "cookie %s should be cleared", c.Name)
		assert.Negative(t, c.MaxAge, "cookie %s should expire", c.Name)
	}
	svc.AssertExpectations(t)
}

func TestRefresh_FromCookie(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	rotated := &domain.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}
	svc.On("Refresh", mock.Anything, "rt1").Return(rotated, nil)

	req := httptest.NewRequest(http.MethodPost, "/refreshAccessToken", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "rt1"})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "at2", cookies["accessToken"])
	assert.Equal(t, "rt2", cookies["refreshToken"])
}

func TestRefresh_FromBody(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	rotated := &domain.TokenPair{AccessToken: "at2", RefreshToken: "rt2"}
	svc.On("Refresh", mock.Anything, "rt1").Return(rotated, nil)

	req := httptest.NewRequest(http.MethodPost, "/refreshAccessToken", strings.NewReader(`{"refreshToken":"rt1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestRefresh_MissingToken(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/refreshAccessToken", nil)
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	svc.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestRefresh_RejectedToken(t *testing.T) {
	svc := new(mockUserService)
	h := NewAuthHandler(svc, testLogger())

	svc.On("Refresh", mock.Anything, "stale").
		Return(nil, apperrors.Unauthorized("refresh token is expired or invalid"))

	req := httptest.NewRequest(http.MethodPost, "/refreshAccessToken", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "stale"})
	rec := httptest.NewRecorder()
	h.Refresh(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeEnvelope(t, rec.Body)
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
