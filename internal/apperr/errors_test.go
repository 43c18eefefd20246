package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("place order: %w", NotFound(CodeMenuItemNotFound, "Menu item not found"))

	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
	assert.Equal(t, CodeMenuItemNotFound, appErr.Code)
	assert.True(t, IsCode(err, CodeMenuItemNotFound))
	assert.False(t, IsCode(err, CodeOrderNotFound))
}

func TestConstructorsStatusCodes(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Conflict(CodeOrderAlreadyPaid, "paid"), http.StatusConflict},
		{Unauthorized("no"), http.StatusUnauthorized},
		{RateLimited("slow down"), http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.StatusCode, tc.err.Message)
	}

	_, ok := As(fmt.Errorf("plain"))
	assert.False(t, ok)
}
