package authservice

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
)

// Service is the account surface of the API. Register and Login return the
// public user together with a freshly registered auth token.
type Service interface {
	Register(ctx context.Context, email, password string) (usersvc.User, string, error)
	Login(ctx context.Context, email, password string) (usersvc.User, string, error)
	Logout(ctx context.Context, a authsvc.Auth) error
	Me(ctx context.Context, a authsvc.Auth) (usersvc.User, error)
}

func New(users userservice.Service, logger log.Logger) Service {
	var svc Service
	{
		svc = NewBasicService(users)
		svc = LoggingMiddleware(logger)(svc)
	}
	return svc
}

type basicService struct {
	users userservice.Service
}

func NewBasicService(users userservice.Service) Service {
	return &basicService{users: users}
}

func (s *basicService) Register(ctx context.Context, email, password string) (usersvc.User, string, error) {
	user := usersvc.User{Email: email, Password: password}
	if err := s.users.Save(ctx, &user); err != nil {
		return usersvc.User{}, "", err
	}

	token, err := s.users.GenerateAuthToken(ctx, &user)
	if err != nil {
		return usersvc.User{}, "", err
	}
	return user, token, nil
}

func (s *basicService) Login(ctx context.Context, email, password string) (usersvc.User, string, error) {
	user, err := s.users.FindByCredentials(ctx, email, password)
	if err != nil {
		return usersvc.User{}, "", err
	}

	token, err := s.users.GenerateAuthToken(ctx, &user)
	if err != nil {
		return usersvc.User{}, "", err
	}
	return user, token, nil
}

// Logout revokes only the token the request was authenticated with.
func (s *basicService) Logout(ctx context.Context, a authsvc.Auth) error {
	if a.User.ID == "" || a.Token == "" {
		return authsvc.ErrUnauthenticated
	}
	return s.users.RemoveToken(ctx, &a.User, a.Token)
}

func (s *basicService) Me(_ context.Context, a authsvc.Auth) (usersvc.User, error) {
	if a.User.ID == "" {
		return usersvc.User{}, authsvc.ErrUnauthenticated
	}
	return a.User, nil
}
