package models

import (
	"strings"
	"time"

	id "reliefhub/pkg/domain"
	dErrors "reliefhub/pkg/domain-errors"
)

// User is a registered account. PasswordHash is a bcrypt hash and never
// leaves the auth package; API responses use PublicUser.
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// PublicUser is the externally visible shape of a user.
type PublicUser struct {
	ID        id.UserID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// NewUser validates and constructs a user. The caller supplies the bcrypt
// hash; raw passwords never reach the model.
func NewUser(userID id.UserID, name, email, passwordHash string, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name is required")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "name must be 128 characters or less")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeBadRequest, "a valid email is required")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}

	return &User{
		ID:           userID,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
	}, nil
}
