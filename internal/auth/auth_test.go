package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpods/webpods/internal/apperr"
)

func TestSignAndVerify(t *testing.T) {
	v := NewStaticVerifier("secret")

	token, err := v.Sign(&Principal{UserID: "user-1", Email: "u@example.com", Pod: "alice"}, time.Minute)
	require.NoError(t, err)

	p, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "u@example.com", p.Email)
	assert.Equal(t, "alice", p.Pod)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v := NewStaticVerifier("secret")

	_, err := v.Verify("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewStaticVerifier("different")
	token, err := other.Sign(&Principal{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Sign(&Principal{UserID: "user-1"}, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestAuthenticateRequest(t *testing.T) {
	v := NewStaticVerifier("secret")
	token, err := v.Sign(&Principal{UserID: "user-1"}, time.Minute)
	require.NoError(t, err)

	r := httptest.NewRequest("GET", "/", nil)
	_, err = v.AuthenticateRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Basic abc")
	_, err = v.AuthenticateRequest(r)
	assert.ErrorIs(t, err, ErrMissingToken)

	r.Header.Set("Authorization", "Bearer "+token)
	p, err := v.AuthenticateRequest(r)
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
}

func TestCheckPodScope(t *testing.T) {
	assert.NoError(t, CheckPodScope(nil, "alice"))
	assert.NoError(t, CheckPodScope(&Principal{UserID: "u"}, "alice"))
	assert.NoError(t, CheckPodScope(&Principal{UserID: "u", Pod: "alice"}, "alice"))

	err := CheckPodScope(&Principal{UserID: "u", Pod: "alice"}, "bob")
	assert.True(t, apperr.Is(err, apperr.CodePodMismatch))

	err = CheckPodScope(&Principal{UserID: "u", Pod: "alice"}, "")
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestAuthErrorMapping(t *testing.T) {
	assert.Equal(t, apperr.CodeUnauthorized, AuthError(ErrMissingToken).Code)
	assert.Equal(t, apperr.CodeTokenExpired, AuthError(ErrTokenExpired).Code)
	assert.Equal(t, apperr.CodeInvalidToken, AuthError(ErrInvalidToken).Code)
}
