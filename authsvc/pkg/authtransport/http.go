package authtransport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-kit/kit/circuitbreaker"
	"github.com/go-kit/kit/endpoint"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/ratelimit"
	"github.com/go-kit/kit/transport"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/mux"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/validation"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// NewHTTPHandler mounts the account routes under /users. Me and Logout sit
// behind the authentication gate.
func NewHTTPHandler(endpoints authendpoint.Set, users TokenFinder, logger log.Logger) http.Handler {
	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(errorEncoder),
		httptransport.ServerErrorHandler(transport.NewLogErrorHandler(logger)),
		httptransport.ServerBefore(HTTPToContext()),
	}

	registerHandler := httptransport.NewServer(
		endpoints.RegisterEndpoint,
		decodeHTTPRegisterRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	loginHandler := httptransport.NewServer(
		endpoints.LoginEndpoint,
		decodeHTTPLoginRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	meHandler := httptransport.NewServer(
		NewAuthenticater(users)(endpoints.MeEndpoint),
		decodeHTTPMeRequest,
		encodeHTTPGenericResponse,
		options...,
	)

	logoutHandler := httptransport.NewServer(
		NewAuthenticater(users)(endpoints.LogoutEndpoint),
		decodeHTTPLogoutRequest,
		encodeHTTPEmptyResponse,
		options...,
	)

	r := mux.NewRouter()

	r.Methods("POST").Path("/users").Handler(registerHandler)
	r.Methods("POST").Path("/users/login").Handler(loginHandler)
	r.Methods("GET").Path("/users/me").Handler(meHandler)
	r.Methods("DELETE").Path("/users/me/token").Handler(logoutHandler)

	return r
}

// NewHTTPClient returns a service backed by a remote instance. The auth
// token for Me and Logout is taken from the Auth argument.
func NewHTTPClient(instance string, logger log.Logger) (authservice.Service, error) {
	if !strings.HasPrefix(instance, "http") {
		instance = "http://" + instance
	}
	u, err := url.Parse(instance)
	if err != nil {
		return nil, err
	}

	limiter := ratelimit.NewErroringLimiter(rate.NewLimiter(rate.Every(time.Second), 100))

	options := []httptransport.ClientOption{
		httptransport.ClientBefore(ContextToHTTP()),
	}

	var registerEndpoint endpoint.Endpoint
	{
		registerEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/users"),
			encodeHTTPGenericRequest,
			decodeHTTPRegisterResponse,
			options...,
		).Endpoint()
		registerEndpoint = limiter(registerEndpoint)
		registerEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Register",
			Timeout: 30 * time.Second,
		}))(registerEndpoint)
	}

	var loginEndpoint endpoint.Endpoint
	{
		loginEndpoint = httptransport.NewClient(
			"POST",
			copyURL(u, "/users/login"),
			encodeHTTPGenericRequest,
			decodeHTTPLoginResponse,
			options...,
		).Endpoint()
		loginEndpoint = limiter(loginEndpoint)
		loginEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Login",
			Timeout: 30 * time.Second,
		}))(loginEndpoint)
	}

	var logoutEndpoint endpoint.Endpoint
	{
		logoutEndpoint = httptransport.NewClient(
			"DELETE",
			copyURL(u, "/users/me/token"),
			encodeHTTPEmptyRequest,
			decodeHTTPLogoutResponse,
			options...,
		).Endpoint()
		logoutEndpoint = limiter(logoutEndpoint)
		logoutEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Logout",
			Timeout: 30 * time.Second,
		}))(logoutEndpoint)
	}

	var meEndpoint endpoint.Endpoint
	{
		meEndpoint = httptransport.NewClient(
			"GET",
			copyURL(u, "/users/me"),
			encodeHTTPEmptyRequest,
			decodeHTTPMeResponse,
			options...,
		).Endpoint()
		meEndpoint = limiter(meEndpoint)
		meEndpoint = circuitbreaker.Gobreaker(gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "Me",
			Timeout: 30 * time.Second,
		}))(meEndpoint)
	}

	return authendpoint.Set{
		RegisterEndpoint: registerEndpoint,
		LoginEndpoint:    loginEndpoint,
		LogoutEndpoint:   logoutEndpoint,
		MeEndpoint:       meEndpoint,
	}, nil
}

func copyURL(base *url.URL, path string) *url.URL {
	next := *base
	next.Path = path
	return &next
}

// errorEncoder writes err as {"error": "..."}. Errors outside the known
// set are reported as a bare internal error.
func errorEncoder(_ context.Context, err error, w http.ResponseWriter) {
	code := err2code(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = errInternal.Error()
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(errorWrapper{Error: msg})
}

func err2code(err error) int {
	var verr *validation.Error
	switch {
	case errors.As(err, &verr),
		errors.Is(err, usersvc.ErrInvalidArgument),
		errors.Is(err, authsvc.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, authsvc.ErrUnauthenticated),
		errors.Is(err, authsvc.ErrAuthContextMissing),
		errors.Is(err, usersvc.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, usersvc.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, ratelimit.ErrLimited):
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

var errInternal = errors.New("internal error")

type errorWrapper struct {
	Error string `json:"error"`
}

func str2err(s string) error {
	switch s {
	case "":
		return nil
	case authsvc.ErrInvalidArgument.Error():
		return authsvc.ErrInvalidArgument
	case authsvc.ErrUnauthenticated.Error():
		return authsvc.ErrUnauthenticated
	case usersvc.ErrInvalidCredentials.Error():
		return usersvc.ErrInvalidCredentials
	case usersvc.ErrEmailTaken.Error():
		return usersvc.ErrEmailTaken
	case ratelimit.ErrLimited.Error():
		return ratelimit.ErrLimited
	}
	return errors.New(s)
}

// decodeHTTPError reads the error body of a non-200 reply. Client errors
// come back as the business error; server errors fail the call itself.
func decodeHTTPError(r *http.Response) (business error, err error) {
	var w errorWrapper
	if err := json.NewDecoder(r.Body).Decode(&w); err != nil || w.Error == "" {
		w.Error = r.Status
	}
	if r.StatusCode >= http.StatusInternalServerError {
		return nil, errors.New(w.Error)
	}
	if r.StatusCode == http.StatusBadRequest {
		if verr, ok := validation.Parse(w.Error); ok {
			return verr, nil
		}
	}
	return str2err(w.Error), nil
}

func decodeHTTPRegisterRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPRegisterResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		business, err := decodeHTTPError(r)
		return authendpoint.RegisterResponse{Err: business}, err
	}
	var resp authendpoint.RegisterResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	resp.Token = r.Header.Get(authsvc.HeaderKey)
	return resp, err
}

func decodeHTTPLoginRequest(_ context.Context, r *http.Request) (interface{}, error) {
	var req authendpoint.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, authsvc.ErrInvalidArgument
	}
	return req, nil
}

func decodeHTTPLoginResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		business, err := decodeHTTPError(r)
		return authendpoint.LoginResponse{Err: business}, err
	}
	var resp authendpoint.LoginResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	resp.Token = r.Header.Get(authsvc.HeaderKey)
	return resp, err
}

func decodeHTTPLogoutRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.LogoutRequest{}, nil
}

func decodeHTTPLogoutResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		business, err := decodeHTTPError(r)
		return authendpoint.LogoutResponse{Err: business}, err
	}
	return authendpoint.LogoutResponse{}, nil
}

func decodeHTTPMeRequest(_ context.Context, _ *http.Request) (interface{}, error) {
	return authendpoint.MeRequest{}, nil
}

func decodeHTTPMeResponse(_ context.Context, r *http.Response) (interface{}, error) {
	if r.StatusCode != http.StatusOK {
		business, err := decodeHTTPError(r)
		return authendpoint.MeResponse{Err: business}, err
	}
	var resp authendpoint.MeResponse
	err := json.NewDecoder(r.Body).Decode(&resp)
	return resp, err
}

// encodeHTTPGenericRequest is a transport/http.EncodeRequestFunc that
// JSON-encodes any request to the request body. Primarily useful in a client.
func encodeHTTPGenericRequest(_ context.Context, r *http.Request, request interface{}) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(request); err != nil {
		return err
	}
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	r.Body = ioutil.NopCloser(&buf)
	return nil
}

func encodeHTTPEmptyRequest(_ context.Context, _ *http.Request, _ interface{}) error {
	return nil
}

type tokenCarrier interface {
	AuthToken() string
}

// encodeHTTPGenericResponse is a transport/http.EncodeResponseFunc that encodes
// the response as JSON to the response writer. A freshly issued token is
// returned in the x-auth header. Primarily useful in a server.
func encodeHTTPGenericResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	if t, ok := response.(tokenCarrier); ok && t.AuthToken() != "" {
		w.Header().Set(authsvc.HeaderKey, t.AuthToken())
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	return json.NewEncoder(w).Encode(response)
}

func encodeHTTPEmptyResponse(ctx context.Context, w http.ResponseWriter, response interface{}) error {
	if f, ok := response.(endpoint.Failer); ok && f.Failed() != nil {
		errorEncoder(ctx, f.Failed(), w)
		return nil
	}
	w.WriteHeader(http.StatusOK)
	return nil
}
