package client

import (
	"context"
	"errors"

	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/usersvc"
)

// TokenFinder resolves auth tokens through a remote Me endpoint so that a
// gateway can run the authentication gate without a database.
type TokenFinder struct {
	Endpoints authendpoint.Set
}

func (f TokenFinder) FindByToken(ctx context.Context, token string) (usersvc.User, error) {
	u, err := f.Endpoints.Me(ctx, authsvc.Auth{Token: token})
	if errors.Is(err, authsvc.ErrUnauthenticated) {
		return usersvc.User{}, usersvc.ErrUserNotFound
	}
	if err != nil {
		return usersvc.User{}, err
	}
	return u, nil
}
