package authendpoint

import (
	"context"

	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/usersvc"
)

type Set struct {
	RegisterEndpoint endpoint.Endpoint
	LoginEndpoint    endpoint.Endpoint
	LogoutEndpoint   endpoint.Endpoint
	MeEndpoint       endpoint.Endpoint
}

// New builds the server endpoints. Register and Login share one limiter so
// credential guessing is throttled across both.
func New(svc authservice.Service, limit ratelimit.Allower, logger log.Logger) Set {
	limiter := ratelimit.NewErroringLimiter(limit)

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = MakeRegisterEndpoint(svc)
		registerEndpoint = limiter(registerEndpoint)
		registerEndpoint = LoggingMiddleware(log.With(logger, "method", "Register"))(registerEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = MakeLoginEndpoint(svc)
		loginEndpoint = limiter(loginEndpoint)
		loginEndpoint = LoggingMiddleware(log.With(logger, "method", "Login"))(loginEndpoint)
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = MakeLogoutEndpoint(svc)
		logoutEndpoint = LoggingMiddleware(log.With(logger, "method", "Logout"))(logoutEndpoint)
	}

	var meEndpoint endpoint.Endpoint
	{
		meEndpoint = MakeMeEndpoint(svc)
		meEndpoint = LoggingMiddleware(log.With(logger, "method", "Me"))(meEndpoint)
	}

	return Set{
		RegisterEndpoint: registerEndpoint,
		LoginEndpoint:    loginEndpoint,
		LogoutEndpoint:   logoutEndpoint,
		MeEndpoint:       meEndpoint,
	}
}

func (s Set) Register(ctx context.Context, email, password string) (usersvc.User, string, error) {
	response, err := s.RegisterEndpoint(ctx, RegisterRequest{Email: email, Password: password})
	if err != nil {
		return usersvc.User{}, "", err
	}

	resp := response.(RegisterResponse)
	return resp.User, resp.Token, resp.Err
}

func (s Set) Login(ctx context.Context, email, password string) (usersvc.User, string, error) {
	response, err := s.LoginEndpoint(ctx, LoginRequest{Email: email, Password: password})
	if err != nil {
		return usersvc.User{}, "", err
	}

	resp := response.(LoginResponse)
	return resp.User, resp.Token, resp.Err
}

func (s Set) Logout(ctx context.Context, a authsvc.Auth) error {
	response, err := s.LogoutEndpoint(authsvc.NewContext(ctx, a), LogoutRequest{})
	if err != nil {
		return err
	}

	resp := response.(LogoutResponse)
	return resp.Err
}

func (s Set) Me(ctx context.Context, a authsvc.Auth) (usersvc.User, error) {
	response, err := s.MeEndpoint(authsvc.NewContext(ctx, a), MeRequest{})
	if err != nil {
		return usersvc.User{}, err
	}

	resp := response.(MeResponse)
	return resp.User, resp.Err
}

func MakeRegisterEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(RegisterRequest)
		u, t, err := s.Register(ctx, req.Email, req.Password)

		return RegisterResponse{User: u, Token: t, Err: err}, nil
	}
}

func MakeLoginEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		req := request.(LoginRequest)
		u, t, err := s.Login(ctx, req.Email, req.Password)

		return LoginResponse{User: u, Token: t, Err: err}, nil
	}
}

func MakeLogoutEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return LogoutResponse{Err: authsvc.ErrUnauthenticated}, nil
		}

		_ = request.(LogoutRequest)
		err = s.Logout(ctx, a)

		return LogoutResponse{Err: err}, nil
	}
}

func MakeMeEndpoint(s authservice.Service) endpoint.Endpoint {
	return func(ctx context.Context, request interface{}) (response interface{}, err error) {
		a, ok := authsvc.FromContext(ctx)
		if !ok {
			return MeResponse{Err: authsvc.ErrUnauthenticated}, nil
		}

		_ = request.(MeRequest)
		u, err := s.Me(ctx, a)

		return MeResponse{User: u, Err: err}, nil
	}
}

var (
	_ endpoint.Failer = RegisterResponse{}
	_ endpoint.Failer = LoginResponse{}
	_ endpoint.Failer = LogoutResponse{}
	_ endpoint.Failer = MeResponse{}
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse encodes as the public user; Token travels in a header.
type RegisterResponse struct {
	usersvc.User
	Token string `json:"-"`
	Err   error  `json:"-"`
}

func (r RegisterResponse) Failed() error { return r.Err }
func (r RegisterResponse) AuthToken() string { return r.Token }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	usersvc.User
	Token string `json:"-"`
	Err   error  `json:"-"`
}

func (r LoginResponse) Failed() error { return r.Err }
func (r LoginResponse) AuthToken() string { return r.Token }

type LogoutRequest struct{}

type LogoutResponse struct {
	Err error `json:"-"`
}

func (r LogoutResponse) Failed() error { return r.Err }

type MeRequest struct{}

type MeResponse struct {
	usersvc.User
	Err error `json:"-"`
}

func (r MeResponse) Failed() error { return r.Err }
