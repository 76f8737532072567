package authsvc

import (
	"context"
	"errors"

	"github.com/ichigozero/todokit/usersvc"
)

// HeaderKey is the header that carries the token on requests and on the
// register and login responses.
const HeaderKey = "x-auth"

// Payload is the signed content of a token.
type Payload struct {
	UserID string
	Access string
}

// Auth is the identity resolved by the authentication gate.
type Auth struct {
	User  usersvc.User
	Token string
}

type contextKey string

const AuthContextKey contextKey = "Auth"

func NewContext(ctx context.Context, a Auth) context.Context {
	return context.WithValue(ctx, AuthContextKey, a)
}

func FromContext(ctx context.Context) (Auth, bool) {
	a, ok := ctx.Value(AuthContextKey).(Auth)
	return a, ok
}

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrAuthContextMissing = errors.New("auth was not passed through the context")
	ErrTokenInvalid       = errors.New("token is invalid")
)
