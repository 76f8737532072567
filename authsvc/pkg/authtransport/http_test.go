package authtransport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/authsvc/pkg/authendpoint"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/storage"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newServer(t *testing.T, limit *rate.Limiter) *httptest.Server {
	t.Helper()
	db, err := storage.Open("", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	logger := log.NewNopLogger()
	users := userservice.New(gorm.NewUserRepository(db), authservice.NewTokenizer([]byte("abc123"), 0), logger)
	endpoints := authendpoint.New(authservice.New(users, logger), limit, logger)

	srv := httptest.NewServer(NewHTTPHandler(endpoints, users, logger))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(authsvc.HeaderKey, token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestAccountFlow(t *testing.T) {
	srv := newServer(t, rate.NewLimiter(rate.Inf, 1))

	resp := do(t, "POST", srv.URL+"/users", "", `{"email":"Andrew@Example.com","password":"userOnePass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	token := resp.Header.Get(authsvc.HeaderKey)
	require.NotEmpty(t, token)

	user := decodeBody(t, resp)
	assert.Equal(t, "andrew@example.com", user["email"])
	assert.NotEmpty(t, user["id"])
	assert.Len(t, user, 2)

	resp = do(t, "GET", srv.URL+"/users/me", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user, decodeBody(t, resp))

	resp = do(t, "POST", srv.URL+"/users/login", "", `{"email":"andrew@example.com","password":"userOnePass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	second := resp.Header.Get(authsvc.HeaderKey)
	require.NotEmpty(t, second)
	assert.NotEqual(t, token, second)

	resp = do(t, "DELETE", srv.URL+"/users/me/token", token, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, "GET", srv.URL+"/users/me", token, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, "GET", srv.URL+"/users/me", second, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccountErrors(t *testing.T) {
	srv := newServer(t, rate.NewLimiter(rate.Inf, 1))

	resp := do(t, "POST", srv.URL+"/users", "", `{"email":"mike@example.com","password":"userTwoPass"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	for _, tt := range []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		code   int
	}{
		{"duplicate email", "POST", "/users", "", `{"email":"MIKE@example.com","password":"another1"}`, http.StatusConflict},
		{"missing password", "POST", "/users", "", `{"email":"new@example.com"}`, http.StatusBadRequest},
		{"invalid email", "POST", "/users", "", `{"email":"not-an-email","password":"secret1"}`, http.StatusBadRequest},
		{"short password", "POST", "/users", "", `{"email":"new@example.com","password":"12345"}`, http.StatusBadRequest},
		{"malformed body", "POST", "/users", "", `{"email":`, http.StatusBadRequest},
		{"wrong password", "POST", "/users/login", "", `{"email":"mike@example.com","password":"wrong-pass"}`, http.StatusUnauthorized},
		{"unknown email", "POST", "/users/login", "", `{"email":"nobody@example.com","password":"userTwoPass"}`, http.StatusUnauthorized},
		{"no token", "GET", "/users/me", "", "", http.StatusUnauthorized},
		{"garbage token", "GET", "/users/me", "garbage", "", http.StatusUnauthorized},
		{"logout without token", "DELETE", "/users/me/token", "", "", http.StatusUnauthorized},
	} {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, srv.URL+tt.path, tt.token, tt.body)
			assert.Equal(t, tt.code, resp.StatusCode)
			assert.Empty(t, resp.Header.Get(authsvc.HeaderKey))
			assert.NotEmpty(t, decodeBody(t, resp)["error"])
		})
	}
}

func TestLoginThrottled(t *testing.T) {
	srv := newServer(t, rate.NewLimiter(rate.Every(time.Hour), 1))

	resp := do(t, "POST", srv.URL+"/users", "", `{"email":"a@b.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, "POST", srv.URL+"/users/login", "", `{"email":"a@b.com","password":"secret1"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestHTTPClient(t *testing.T) {
	ctx := context.Background()
	srv := newServer(t, rate.NewLimiter(rate.Inf, 1))

	client, err := NewHTTPClient(srv.URL, log.NewNopLogger())
	require.NoError(t, err)

	u, token, err := client.Register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.NotEmpty(t, token)

	_, _, err = client.Register(ctx, "a@b.com", "secret1")
	assert.ErrorIs(t, err, usersvc.ErrEmailTaken)

	_, _, err = client.Login(ctx, "a@b.com", "nope-nope")
	assert.ErrorIs(t, err, usersvc.ErrInvalidCredentials)

	me, err := client.Me(ctx, authsvc.Auth{User: u, Token: token})
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	require.NoError(t, client.Logout(ctx, authsvc.Auth{User: u, Token: token}))

	_, err = client.Me(ctx, authsvc.Auth{User: u, Token: token})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)
}

func TestErr2code(t *testing.T) {
	for _, tt := range []struct {
		err  error
		code int
	}{
		{usersvc.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("save: %w", usersvc.ErrInvalidArgument), http.StatusBadRequest},
		{authsvc.ErrUnauthenticated, http.StatusUnauthorized},
		{usersvc.ErrUserNotFound, http.StatusInternalServerError},
		{fmt.Errorf("database is locked"), http.StatusInternalServerError},
	} {
		assert.Equal(t, tt.code, err2code(tt.err), tt.err.Error())
	}

	w := httptest.NewRecorder()
	errorEncoder(context.Background(), fmt.Errorf("dial tcp: connection refused"), w)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, w.Body.String())
}
