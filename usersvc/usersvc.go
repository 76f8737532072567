package usersvc

import (
	"context"
	"errors"
	"strings"

	"github.com/ichigozero/todokit/validation"
)

// AccessAuth is the access class of tokens issued at login and registration.
const AccessAuth = "auth"

const (
	minEmailLength    = 5
	minPasswordLength = 6
)

// User is an account. Only ID and Email are ever serialized outward.
//
// Password carries a freshly set plaintext password until the next save,
// which replaces it with PasswordHash and clears it.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Password     string    `gorm:"-" json:"-"`
	Sessions     []Session `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Session is one active login of a user. Sessions are kept in append order.
type Session struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID string `gorm:"index;size:36;not null"`
	Access string `gorm:"not null"`
	Token  string `gorm:"not null"`
}

// HasSession reports whether token is registered for the given access class.
func (u User) HasSession(access, token string) bool {
	for _, s := range u.Sessions {
		if s.Access == access && s.Token == token {
			return true
		}
	}
	return false
}

type UserRepository interface {
	Create(ctx context.Context, u *User) error
	Save(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	AppendSession(ctx context.Context, userID string, s *Session) error
	RemoveSession(ctx context.Context, userID, token string) error
}

// NormalizeEmail trims and lowercases an address. Emails are unique
// case-insensitively, so every lookup and save goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks an already normalized address.
func ValidateEmail(email string) error {
	return validation.First(
		validation.Required("email", email),
		validation.MinLength("email", email, minEmailLength),
		validation.Email("email", email),
	)
}

// NormalizePassword trims surrounding whitespace. Passwords are stored and
// compared in trimmed form.
func NormalizePassword(password string) string {
	return strings.TrimSpace(password)
}

// ValidatePassword checks an already normalized password.
func ValidatePassword(password string) error {
	return validation.First(
		validation.Required("password", password),
		validation.MinLength("password", password, minPasswordLength),
	)
}

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
)
