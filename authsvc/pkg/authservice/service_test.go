package authservice

import (
	"context"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc"
	"github.com/ichigozero/todokit/storage"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (Service, userservice.Service) {
	t.Helper()
	db, err := storage.Open("", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	users := userservice.New(gorm.NewUserRepository(db), NewTokenizer([]byte("abc123"), 0), log.NewNopLogger())

	svc := New(users, log.NewNopLogger())
	svc = InstrumentingMiddleware(discard.NewCounter(), discard.NewHistogram())(svc)
	return svc, users
}

func TestRegisterLogin(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(t)

	u, t1, err := svc.Register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)
	assert.NotEmpty(t, t1)

	got, t2, err := svc.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NotEqual(t, t1, t2)

	for _, token := range []string{t1, t2} {
		owner, err := users.FindByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, owner.ID)
	}

	_, _, err = svc.Login(ctx, "a@b.com", "wrong-password")
	assert.ErrorIs(t, err, usersvc.ErrInvalidCredentials)

	_, _, err = svc.Register(ctx, "A@B.com", "secret1")
	assert.ErrorIs(t, err, usersvc.ErrEmailTaken)
}

func TestLogoutRemovesOnlyUsedToken(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(t)

	_, t1, err := svc.Register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	_, t2, err := svc.Login(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	owner, err := users.FindByToken(ctx, t1)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, authsvc.Auth{User: owner, Token: t1}))

	_, err = users.FindByToken(ctx, t1)
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)
	_, err = users.FindByToken(ctx, t2)
	assert.NoError(t, err)
}

func TestMe(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	u, token, err := svc.Register(ctx, "a@b.com", "secret1")
	require.NoError(t, err)

	got, err := svc.Me(ctx, authsvc.Auth{User: u, Token: token})
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Me(ctx, authsvc.Auth{})
	assert.ErrorIs(t, err, authsvc.ErrUnauthenticated)
	assert.ErrorIs(t, svc.Logout(ctx, authsvc.Auth{}), authsvc.ErrUnauthenticated)
}
