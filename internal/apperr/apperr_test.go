package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Unauthorized("x"), http.StatusUnauthorized},
		{TokenExpired(), http.StatusUnauthorized},
		{PodMismatch("a", "b"), http.StatusForbidden},
		{PodNotFound("a"), http.StatusNotFound},
		{StreamExists("s"), http.StatusConflict},
		{NameConflict("x"), http.StatusConflict},
		{InvalidIndex("a:b"), http.StatusBadRequest},
		{ContentTooLarge(11, 10), http.StatusRequestEntityTooLarge},
		{ValidationError("x"), http.StatusUnprocessableEntity},
		{RateLimitExceeded("write"), http.StatusTooManyRequests},
		{Database(errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status, tc.err.Code)
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	ae := From(errors.New("boom"))
	assert.Equal(t, CodeInternal, ae.Code)
	assert.Equal(t, http.StatusInternalServerError, ae.Status)

	original := StreamNotFound("blog")
	assert.Same(t, original, From(original))
	assert.Same(t, original, From(fmt.Errorf("wrapped: %w", original)))
}

func TestIsMatchesCode(t *testing.T) {
	err := fmt.Errorf("outer: %w", RecordNotFound("post"))
	assert.True(t, Is(err, CodeRecordNotFound))
	assert.False(t, Is(err, CodeStreamNotFound))
	assert.False(t, Is(errors.New("plain"), CodeInternal))
}

func TestWithCauseKeepsWireShape(t *testing.T) {
	cause := errors.New("disk full")
	err := Storage(cause)
	require.ErrorIs(t, err, cause)
	assert.Equal(t, CodeStorage, err.Code)
}
