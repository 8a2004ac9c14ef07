package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/avelkov/account-service/internal/auth"
	"github.com/avelkov/account-service/internal/domain"
	"github.com/avelkov/account-service/internal/repository"
	"github.com/avelkov/account-service/internal/storage"
	apperrors "github.com/avelkov/account-service/pkg/errors"
)

const bcryptCost = 12

// EventPublisher emits account lifecycle events. Failures are logged by the
// implementation and never fail the calling flow.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, user *domain.User) error
}

// UserService implements registration, credential login and the refresh
// token session lifecycle.
type UserService struct {
	repo   repository.UserRepository
	tokens *auth.Manager
	media  storage.Storage
	events EventPublisher
	logger *slog.Logger
}

// NewUserService wires the service with its dependencies. events may be nil
// when no broker is configured.
func NewUserService(repo repository.UserRepository, tokens *auth.Manager, media storage.Storage, events EventPublisher, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		tokens: tokens,
		media:  media,
		events: events,
		logger: logger,
	}
}

// RegisterInput carries the registration form. Avatar is mandatory,
// CoverImage optional.
type RegisterInput struct {
	FullName   string
	Email      string
	UserName   string
	Password   string
	Avatar     *storage.File
	CoverImage *storage.File
}

// LoginInput identifies the user by email or username, at least one of
// which must be set.
type LoginInput struct {
	Email    string
	UserName string
	Password string
}

// UpdateAccountInput carries optional profile changes; nil fields are left
// untouched.
type UpdateAccountInput struct {
	FullName *string
	Email    *string
}

// Register creates a new account. The avatar is uploaded to the media host
// before the user document is written; the stored user is re-read after
// insert so the caller gets exactly what persistence returned.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.ToLower(strings.TrimSpace(in.UserName))

	if in.FullName == "" || in.Email == "" || in.UserName == "" || in.Password == "" {
		return nil, apperrors.InvalidInput("fullName, email, userName and password are required")
	}
	if in.Avatar == nil {
		return nil, apperrors.InvalidInput("avatar image is required")
	}

	if _, err := s.repo.GetByIdentity(ctx, in.Email, in.UserName); err == nil {
		return nil, apperrors.Conflict("user with this email or username already exists")
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	avatar, err := s.media.Upload(ctx, *in.Avatar)
	if err != nil {
		return nil, apperrors.Wrap(err, "upload avatar")
	}

	var coverURL string
	var coverKey string
	if in.CoverImage != nil {
		cover, err := s.media.Upload(ctx, *in.CoverImage)
		if err != nil {
			s.discard(ctx, avatar.Key)
			return nil, apperrors.Wrap(err, "upload cover image")
		}
		coverURL = cover.URL
		coverKey = cover.Key
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		s.discard(ctx, avatar.Key, coverKey)
		return nil, apperrors.Wrap(err, "hash password")
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Email:        in.Email,
		UserName:     in.UserName,
		Avatar:       avatar.URL,
		CoverImage:   coverURL,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		s.discard(ctx, avatar.Key, coverKey)
		return nil, err
	}

	created, err := s.repo.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("read back created user %s: %w", user.ID, err))
	}

	if s.events != nil {
		// Best effort, the producer logs its own failures.
		_ = s.events.PublishUserRegistered(ctx, created)
	}

	return created.Redacted(), nil
}

// Login verifies credentials and starts a session, storing the freshly
// issued refresh token as the only trusted one for the user.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*domain.User, *domain.TokenPair, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.ToLower(strings.TrimSpace(in.UserName))

	if in.Email == "" && in.UserName == "" {
		return nil, nil, apperrors.InvalidInput("email or username is required")
	}
	if in.Password == "" {
		return nil, nil, apperrors.InvalidInput("password is required")
	}

	user, err := s.repo.GetByIdentity(ctx, in.Email, in.UserName)
	if err != nil {
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid credentials")
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, nil, err
	}

	if s.events != nil {
		_ = s.events.PublishUserLoggedIn(ctx, user)
	}

	return user.Redacted(), pair, nil
}

// Logout ends the user's session by removing the stored refresh token.
// Tokens already in the wild stop being refreshable immediately.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	return s.repo.ClearRefreshToken(ctx, userID)
}

// Refresh rotates the session: the presented refresh token must be
// cryptographically valid AND byte-equal to the stored one. On success a
// new pair is issued and the new refresh token replaces the old.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if refreshToken == "" {
		return nil, apperrors.Unauthorized("refresh token is required")
	}

	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	if user.RefreshToken == "" || user.RefreshToken != refreshToken {
		return nil, apperrors.Unauthorized("refresh token is expired or invalid")
	}

	return s.startSession(ctx, user)
}

// ResolveAccessToken validates an access token and loads the user it
// belongs to. Used by the authentication guard.
func (s *UserService) ResolveAccessToken(ctx context.Context, accessToken string) (*domain.User, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid access token")
	}
	return user.Redacted(), nil
}

// CurrentUser returns the redacted profile of an authenticated user.
func (s *UserService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Redacted(), nil
}

// ChangePassword verifies the current password, stores the new hash and
// revokes the active session so every device has to log in again.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return apperrors.InvalidInput("new password is required")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return apperrors.Wrap(err, "hash password")
	}
	user.PasswordHash = string(hash)

	if err := s.repo.Update(ctx, user); err != nil {
		return err
	}
	return s.repo.ClearRefreshToken(ctx, userID)
}

// UpdateAccount applies partial profile changes and returns the updated
// redacted user.
func (s *UserService) UpdateAccount(ctx context.Context, userID string, in UpdateAccountInput) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	changed := false
	if in.FullName != nil && strings.TrimSpace(*in.FullName) != "" {
		user.FullName = strings.TrimSpace(*in.FullName)
		changed = true
	}
	if in.Email != nil && strings.TrimSpace(*in.Email) != "" {
		user.Email = strings.TrimSpace(*in.Email)
		changed = true
	}
	if !changed {
		return nil, apperrors.InvalidInput("nothing to update")
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user.Redacted(), nil
}

// startSession issues a fresh token pair and persists its refresh token,
// overwriting whatever was stored before.
func (s *UserService) startSession(ctx context.Context, user *domain.User) (*domain.TokenPair, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.Wrap(err, "issue tokens")
	}

	if err := s.repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperrors.Wrap(err, "persist refresh token")
	}
	return pair, nil
}

func (s *UserService) discard(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete uploaded file",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}
