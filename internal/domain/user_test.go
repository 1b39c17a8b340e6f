package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	u := NewUser("domtoretto", "americanmuscle@fastnfurious.com")

	_, err := uuid.Parse(u.ID)
	assert.NoError(t, err, "generated id should be a valid uuid")
	assert.Equal(t, "domtoretto", u.Username)
	assert.Equal(t, "americanmuscle@fastnfurious.com", u.Email)
	assert.True(t, u.Active)
	assert.Nil(t, u.CreatedAt, "timestamps are store-generated")
	assert.Nil(t, u.UpdatedAt)
}

func TestUserValidate(t *testing.T) {
	t.Run("valid user passes", func(t *testing.T) {
		u := NewUser("domtoretto", "americanmuscle@fastnfurious.com")
		assert.NoError(t, u.Validate())
	})

	t.Run("missing username fails", func(t *testing.T) {
		u := NewUser("", "americanmuscle@fastnfurious.com")
		err := u.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("short username fails", func(t *testing.T) {
		u := NewUser("ab", "americanmuscle@fastnfurious.com")
		err := u.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("malformed email fails", func(t *testing.T) {
		u := NewUser("domtoretto", "not-an-email")
		err := u.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})

	t.Run("missing id fails", func(t *testing.T) {
		u := &User{Username: "domtoretto", Email: "americanmuscle@fastnfurious.com"}
		err := u.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestValidationMessages(t *testing.T) {
	t.Run("lists every failing field", func(t *testing.T) {
		u := &User{Username: "ab", Email: "not-an-email"}
		err := ValidateRecord(u)
		require.Error(t, err)

		msgs := ValidationMessages(err)
		assert.Len(t, msgs, 3) // id, username, email
	})

	t.Run("plain validation error yields one message", func(t *testing.T) {
		err := NewValidationError("body", "invalid JSON")
		msgs := ValidationMessages(err)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0], "body")
	})

	t.Run("non-validation error yields its message", func(t *testing.T) {
		msgs := ValidationMessages(errors.New("boom"))
		require.Len(t, msgs, 1)
		assert.Equal(t, "boom", msgs[0])
	})
}
