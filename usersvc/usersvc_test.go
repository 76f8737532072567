package usersvc

import (
	"errors"
	"testing"

	"github.com/ichigozero/todokit/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)

	assert.True(t, VerifyPassword("secret1", hash))
	assert.False(t, VerifyPassword("secret2", hash))
	assert.False(t, VerifyPassword("secret1", "not-a-hash"))

	again, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes of the same password must be salted")
	assert.True(t, VerifyPassword("secret1", again))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.com \n"))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("a@b.com"))

	for _, email := range []string{"", "a@b", "not an email"} {
		var verr *validation.Error
		require.True(t, errors.As(ValidateEmail(email), &verr), email)
		assert.Equal(t, "email", verr.Field)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("secret1"))

	var verr *validation.Error
	require.True(t, errors.As(ValidatePassword("12345"), &verr))
	assert.Equal(t, "password", verr.Field)
}

func TestNormalizePassword(t *testing.T) {
	assert.Equal(t, "secret1", NormalizePassword("  secret1\t"))
	assert.Empty(t, NormalizePassword("      "))

	var verr *validation.Error
	require.True(t, errors.As(ValidatePassword(NormalizePassword("  abc  ")), &verr))
	assert.Equal(t, "password", verr.Field)
}

func TestUserHasSession(t *testing.T) {
	u := User{Sessions: []Session{
		{Access: AccessAuth, Token: "t1"},
		{Access: "reset", Token: "t2"},
	}}

	assert.True(t, u.HasSession(AccessAuth, "t1"))
	assert.False(t, u.HasSession(AccessAuth, "t2"))
	assert.False(t, u.HasSession(AccessAuth, "t3"))
}
