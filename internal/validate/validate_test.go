package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Rating   int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
}

func TestStruct(t *testing.T) {
	v := New()

	t.Run("valid struct passes", func(t *testing.T) {
		err := v.Struct(signupBody{Username: "reader42", Email: "reader@example.com", Rating: 3})
		assert.NoError(t, err)
	})

	t.Run("reports fields by JSON tag name", func(t *testing.T) {
		err := v.Struct(signupBody{Username: "x", Email: "not-an-email"})
		require.Error(t, err)

		var verr *Error
		require.ErrorAs(t, err, &verr)

		assert.Contains(t, verr.Fields, "username")
		assert.Contains(t, verr.Fields, "email")
		assert.NotContains(t, verr.Fields, "Username")
	})

	t.Run("messages are human readable", func(t *testing.T) {
		err := v.Struct(signupBody{Username: "x", Email: "reader@example.com"})
		require.Error(t, err)

		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "must be at least 3 characters", verr.Fields["username"])
	})

	t.Run("range violations are reported", func(t *testing.T) {
		err := v.Struct(signupBody{Username: "reader42", Email: "reader@example.com", Rating: 9})
		require.Error(t, err)

		var verr *Error
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "rating")
	})

	t.Run("error string is stable and sorted", func(t *testing.T) {
		err := v.Struct(signupBody{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed:")
		assert.Contains(t, err.Error(), "email is required")
		assert.Contains(t, err.Error(), "username is required")
	})
}
