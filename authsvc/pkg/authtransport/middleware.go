package authtransport

import (
	"context"
	"errors"
	"net/http"
	"strings"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
)

// TokenFinder resolves the owner of a registered auth token.
type TokenFinder interface {
	FindByToken(ctx context.Context, token string) (usersvc.User, error)
}

// HTTPToContext moves the x-auth header into the request context.
func HTTPToContext() httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		token := strings.TrimSpace(r.Header.Get(authsvc.HeaderKey))
		if token == "" {
			return ctx
		}
		return context.WithValue(ctx, kitjwt.JWTTokenContextKey, token)
	}
}

// ContextToHTTP sets the x-auth header from the Auth carried in ctx.
func ContextToHTTP() httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		if a, ok := authsvc.FromContext(ctx); ok && a.Token != "" {
			r.Header.Set(authsvc.HeaderKey, a.Token)
		}
		return ctx
	}
}

// NewAuthenticater only lets requests through whose token resolves to a
// user. The user and the token are attached to the context as an
// authsvc.Auth for the wrapped endpoint.
func NewAuthenticater(users TokenFinder) endpoint.Middleware {
	return func(next endpoint.Endpoint) endpoint.Endpoint {
		return func(ctx context.Context, request interface{}) (response interface{}, err error) {
			token, ok := ctx.Value(kitjwt.JWTTokenContextKey).(string)
			if !ok || token == "" {
				return nil, authsvc.ErrUnauthenticated
			}

			user, err := users.FindByToken(ctx, token)
			if errors.Is(err, usersvc.ErrUserNotFound) {
				return nil, authsvc.ErrUnauthenticated
			}
			if err != nil {
				return nil, err
			}

			ctx = authsvc.NewContext(ctx, authsvc.Auth{User: user, Token: token})

			return next(ctx, request)
		}
	}
}
