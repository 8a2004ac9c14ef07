package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/avelkov/account-service/internal/domain"
	"github.com/avelkov/account-service/internal/repository"
	apperrors "github.com/avelkov/account-service/pkg/errors"
)

// UserRepository is the MongoDB-backed implementation of
// repository.UserRepository.
type UserRepository struct {
	m *Mongo
}

var _ repository.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a user repository on top of a connected Mongo.
func NewUserRepository(m *Mongo) *UserRepository {
	return &UserRepository{m: m}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.m.users().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("user with this email or username already exists")
		}
		return apperrors.Wrap(err, "insert user")
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	err := r.m.users().FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, apperrors.Wrap(err, "find user by id")
	}
	return &user, nil
}

func (r *UserRepository) GetByIdentity(ctx context.Context, email, userName string) (*domain.User, error) {
	var clauses bson.A
	if email != "" {
		clauses = append(clauses, bson.D{{Key: "email", Value: email}})
	}
	if userName != "" {
		clauses = append(clauses, bson.D{{Key: "username", Value: userName}})
	}
	if len(clauses) == 0 {
		return nil, apperrors.InvalidInput("email or username is required")
	}

	var user domain.User
	err := r.m.users().FindOne(ctx, bson.D{{Key: "$or", Value: clauses}}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("user", firstNonEmpty(email, userName))
		}
		return nil, apperrors.Wrap(err, "find user by identity")
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()

	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "full_name", Value: user.FullName},
		{Key: "email", Value: user.Email},
		{Key: "avatar", Value: user.Avatar},
		{Key: "cover_image", Value: user.CoverImage},
		{Key: "password_hash", Value: user.PasswordHash},
		{Key: "updated_at", Value: user.UpdatedAt},
	}}}

	res, err := r.m.users().UpdateByID(ctx, user.ID, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("user with this email already exists")
		}
		return apperrors.Wrap(err, "update user")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user", user.ID)
	}
	return nil
}

func (r *UserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "refresh_token", Value: token},
		{Key: "updated_at", Value: time.Now().UTC()},
	}}}

	res, err := r.m.users().UpdateByID(ctx, userID, update)
	if err != nil {
		return apperrors.Wrap(err, "set refresh token")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user", userID)
	}
	return nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	// $unset removes the field entirely, so an absent session is
	// distinguishable from an empty token string.
	update := bson.D{
		{Key: "$unset", Value: bson.D{{Key: "refresh_token", Value: ""}}},
		{Key: "$set", Value: bson.D{{Key: "updated_at", Value: time.Now().UTC()}}},
	}

	res, err := r.m.users().UpdateByID(ctx, userID, update)
	if err != nil {
		return apperrors.Wrap(err, "clear refresh token")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("user", userID)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
