package repository

import (
	"context"

	"github.com/avelkov/account-service/internal/domain"
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create inserts a new user. Returns a conflict error when the email
	// or username is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID fetches a user by primary key.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByIdentity fetches a user matching either the given email or the
	// given username. Empty arguments are ignored; at least one must be set.
	GetByIdentity(ctx context.Context, email, userName string) (*domain.User, error)

	// Update persists mutable profile fields of an existing user.
	Update(ctx context.Context, user *domain.User) error

	// SetRefreshToken stores token as the single trusted refresh token for
	// the user, replacing any previous one.
	SetRefreshToken(ctx context.Context, userID, token string) error

	// ClearRefreshToken removes the stored refresh token so that no
	// refresh token is trusted for the user until the next login.
	ClearRefreshToken(ctx context.Context, userID string) error
}
