package gorm

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ichigozero/todokit/storage"
	"github.com/ichigozero/todokit/usersvc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepository(t *testing.T) usersvc.UserRepository {
	t.Helper()
	db, err := storage.Open("", "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	return NewUserRepository(db)
}

func TestUserRepositoryFind(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	user := &usersvc.User{ID: uuid.NewString(), Email: "first@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(ctx, user))

	got, err := repo.FindByEmail(ctx, "first@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "hash", got.PasswordHash)
	assert.Empty(t, got.Sessions)

	got, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", got.Email)

	_, err = repo.FindByEmail(ctx, "second@example.com")
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)

	_, err = repo.FindByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, usersvc.ErrUserNotFound)
}

func TestUserRepositoryUniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	require.NoError(t, repo.Create(ctx, &usersvc.User{ID: uuid.NewString(), Email: "a@b.com", PasswordHash: "h"}))
	assert.Error(t, repo.Create(ctx, &usersvc.User{ID: uuid.NewString(), Email: "a@b.com", PasswordHash: "h"}))
}

func TestUserRepositorySessions(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	user := &usersvc.User{ID: uuid.NewString(), Email: "a@b.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, user))

	for _, token := range []string{"t1", "t2", "t3"} {
		require.NoError(t, repo.AppendSession(ctx, user.ID, &usersvc.Session{Access: usersvc.AccessAuth, Token: token}))
	}

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Sessions, 3)
	assert.Equal(t, "t1", got.Sessions[0].Token)
	assert.Equal(t, "t2", got.Sessions[1].Token)
	assert.Equal(t, "t3", got.Sessions[2].Token)

	require.NoError(t, repo.RemoveSession(ctx, user.ID, "t2"))
	require.NoError(t, repo.RemoveSession(ctx, user.ID, "missing"))

	got, err = repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Sessions, 2)
	assert.Equal(t, "t1", got.Sessions[0].Token)
	assert.Equal(t, "t3", got.Sessions[1].Token)
}

func TestUserRepositorySaveKeepsSessions(t *testing.T) {
	ctx := context.Background()
	repo := newRepository(t)

	user := &usersvc.User{ID: uuid.NewString(), Email: "a@b.com", PasswordHash: "h"}
	require.NoError(t, repo.Create(ctx, user))
	require.NoError(t, repo.AppendSession(ctx, user.ID, &usersvc.Session{Access: usersvc.AccessAuth, Token: "t1"}))

	user.Email = "c@d.com"
	user.Sessions = nil
	require.NoError(t, repo.Save(ctx, user))

	got, err := repo.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "c@d.com", got.Email)
	assert.Len(t, got.Sessions, 1)
}
