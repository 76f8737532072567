package userservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/google/uuid"
	"github.com/ichigozero/todokit/authsvc/pkg/authservice"
	"github.com/ichigozero/todokit/storage"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/ichigozero/todokit/usersvc/db/gorm"
	"github.com/ichigozero/todokit/usersvc/pkg/userservice"
	"github.com/ichigozero/todokit/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc       userservice.Service
	repo      usersvc.UserRepository
	tokenizer authservice.Tokenizer
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := storage.Open("", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)

	repo := gorm.NewUserRepository(db)
	tokenizer := authservice.NewTokenizer([]byte("abc123"), 0)

	svc := userservice.New(repo, tokenizer, log.NewNopLogger())
	svc = userservice.InstrumentingMiddleware(discard.NewCounter(), discard.NewHistogram())(svc)

	return fixture{svc: svc, repo: repo, tokenizer: tokenizer}
}

func (f fixture) register(t *testing.T, email, password string) *usersvc.User {
	t.Helper()
	u := &usersvc.User{Email: email, Password: password}
	require.NoError(t, f.svc.Save(context.Background(), u))
	return u
}

func TestSaveHashesPassword(t *testing.T) {
	f := newFixture(t)
	u := f.register(t, "  First@Example.com ", "userOnePassword!")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "first@example.com", u.Email)
	assert.Empty(t, u.Password)
	assert.NotEqual(t, "userOnePassword!", u.PasswordHash)
	assert.True(t, usersvc.VerifyPassword("userOnePassword!", u.PasswordHash))

	stored, err := f.repo.FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.PasswordHash, stored.PasswordHash)
}

func TestSaveDoesNotRehash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "a@b.com", "secret1")
	hash := u.PasswordHash

	require.NoError(t, f.svc.Save(ctx, u))
	assert.Equal(t, hash, u.PasswordHash)

	u.Email = "c@d.com"
	require.NoError(t, f.svc.Save(ctx, u))
	assert.Equal(t, hash, u.PasswordHash)

	stored, err := f.repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, hash, stored.PasswordHash)
	assert.Equal(t, "c@d.com", stored.Email)

	_, err = f.svc.FindByCredentials(ctx, "c@d.com", "secret1")
	assert.NoError(t, err)
}

func TestSaveRehashesChangedPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "a@b.com", "secret1")
	hash := u.PasswordHash

	u.Password = "secret2"
	require.NoError(t, f.svc.Save(ctx, u))
	assert.NotEqual(t, hash, u.PasswordHash)

	_, err := f.svc.FindByCredentials(ctx, "a@b.com", "secret1")
	assert.ErrorIs(t, err, usersvc.ErrInvalidCredentials)
	_, err = f.svc.FindByCredentials(ctx, "a@b.com", "secret2")
	assert.NoError(t, err)
}

func TestSaveValidation(t *testing.T) {
	f := newFixture(t)

	tests := map[string]struct {
		user  usersvc.User
		field string
	}{
		"invalid email":  {usersvc.User{Email: "not-an-email", Password: "secret1"}, "email"},
		"short email":    {usersvc.User{Email: "a@b", Password: "secret1"}, "email"},
		"short password": {usersvc.User{Email: "a@b.com", Password: "12345"}, "password"},
		"no password":    {usersvc.User{Email: "a@b.com"}, "password"},
		"blank password": {usersvc.User{Email: "a@b.com", Password: "      "}, "password"},
		"short trimmed":  {usersvc.User{Email: "a@b.com", Password: "  abc  "}, "password"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			u := tt.user
			err := f.svc.Save(context.Background(), &u)

			var verr *validation.Error
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, u.ID)
		})
	}
}

func TestSaveDuplicateEmailIgnoresCase(t *testing.T) {
	f := newFixture(t)
	f.register(t, "a@b.com", "secret1")

	err := f.svc.Save(context.Background(), &usersvc.User{Email: "A@B.COM", Password: "secret2"})
	assert.ErrorIs(t, err, usersvc.ErrEmailTaken)
}

func TestFindByCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "a@b.com", "secret1")

	got, err := f.svc.FindByCredentials(ctx, "A@b.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, wrongPassword := f.svc.FindByCredentials(ctx, "a@b.com", "secret2")
	_, unknownEmail := f.svc.FindByCredentials(ctx, "x@y.com", "secret1")
	assert.ErrorIs(t, wrongPassword, usersvc.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownEmail)
}

func TestPasswordIsTrimmed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	u := &usersvc.User{Email: "a@b.com", Password: "  secret1 "}
	require.NoError(t, f.svc.Save(ctx, u))

	got, err := f.svc.FindByCredentials(ctx, "a@b.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.svc.FindByCredentials(ctx, "a@b.com", " secret1  ")
	assert.NoError(t, err)
}

func TestAuthTokenLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "a@b.com", "secret1")

	t1, err := f.svc.GenerateAuthToken(ctx, u)
	require.NoError(t, err)
	t2, err := f.svc.GenerateAuthToken(ctx, u)
	require.NoError(t, err)
	require.Len(t, u.Sessions, 2)
	assert.Equal(t, t1, u.Sessions[0].Token)
	assert.Equal(t, usersvc.AccessAuth, u.Sessions[0].Access)

	for _, token := range []string{t1, t2} {
		got, err := f.svc.FindByToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	}

	require.NoError(t, f.svc.RemoveToken(ctx, u, t1))
	assert.Len(t, u.Sessions, 1)

	_, err = f.svc.FindByToken(ctx, t1)
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)

	got, err := f.svc.FindByToken(ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	// Removing an unknown token is a no-op.
	require.NoError(t, f.svc.RemoveToken(ctx, u, t1))
	_, err = f.svc.FindByToken(ctx, t2)
	assert.NoError(t, err)
}

func TestFindByTokenRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.register(t, "a@b.com", "secret1")

	unregistered, err := f.tokenizer.Issue(u.ID, usersvc.AccessAuth)
	require.NoError(t, err)

	otherAccess, err := f.tokenizer.Issue(u.ID, "reset")
	require.NoError(t, err)
	require.NoError(t, f.repo.AppendSession(ctx, u.ID, &usersvc.Session{Access: "reset", Token: otherAccess}))

	unknownUser, err := f.tokenizer.Issue(uuid.NewString(), usersvc.AccessAuth)
	require.NoError(t, err)

	forged, err := authservice.NewTokenizer([]byte("not-the-secret"), 0).Issue(u.ID, usersvc.AccessAuth)
	require.NoError(t, err)
	require.NoError(t, f.repo.AppendSession(ctx, u.ID, &usersvc.Session{Access: usersvc.AccessAuth, Token: forged}))

	tests := map[string]string{
		"malformed":       "not-a-token",
		"not registered":  unregistered,
		"wrong access":    otherAccess,
		"unknown user":    unknownUser,
		"wrong signature": forged,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.FindByToken(ctx, token)
			assert.ErrorIs(t, err, usersvc.ErrUserNotFound)
		})
	}
}

func TestGenerateAuthTokenRequiresSavedUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GenerateAuthToken(context.Background(), &usersvc.User{Email: "a@b.com"})
	assert.ErrorIs(t, err, usersvc.ErrInvalidArgument)
}
