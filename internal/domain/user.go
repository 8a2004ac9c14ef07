package domain

import (
	"time"
)

// User represents a registered account. PasswordHash and RefreshToken are
// never serialized to JSON; RefreshToken is the single currently trusted
// refresh token for the user, absent when no session is active.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	FullName     string    `json:"fullName" bson:"full_name"`
	Email        string    `json:"email" bson:"email"`
	UserName     string    `json:"userName" bson:"username"`
	Avatar       string    `json:"avatar" bson:"avatar"`
	CoverImage   string    `json:"coverImage,omitempty" bson:"cover_image,omitempty"`
	PasswordHash string    `json:"-" bson:"password_hash"`
	RefreshToken string    `json:"-" bson:"refresh_token,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updated_at"`
}

// Redacted returns a copy of the user with credential fields cleared. Used
// wherever a user record leaves the service boundary.
func (u *User) Redacted() *User {
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = ""
	return &c
}

// TokenPair holds an access and refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
