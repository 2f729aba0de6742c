package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convo-chat/convo/internal/apperr"
)

const testSecret = "test-secret-key"

func TestVerifyRoundTrip(t *testing.T) {
	signer := NewSigner(testSecret, time.Hour)
	token, err := signer.Sign(Payload{UserID: "u-1", Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	p, err := NewVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, &Payload{UserID: "u-1", Username: "alice", Email: "alice@example.com"}, p)
}

func TestVerifyRejects(t *testing.T) {
	valid, err := NewSigner(testSecret, time.Hour).Sign(Payload{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)
	expired, err := NewSigner(testSecret, -time.Minute).Sign(Payload{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "u-1", Username: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	anonymous, err := NewSigner(testSecret, time.Hour).Sign(Payload{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		secret  string
		token   string
		wantErr error
	}{
		{"empty", testSecret, "", ErrInvalidToken},
		{"garbage", testSecret, "not.a.jwt", ErrInvalidToken},
		{"wrong secret", "other-secret", valid, ErrInvalidToken},
		{"expired", testSecret, expired, ErrExpiredToken},
		{"alg none", testSecret, noneAlg, ErrInvalidToken},
		{"no identity", testSecret, anonymous, ErrInvalidToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewVerifier(tt.secret).Verify(tt.token)
			assert.Nil(t, p)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestVerifyFallsBackToSubject(t *testing.T) {
	claims := Claims{
		Username: "bob",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-2",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	p, err := NewVerifier(testSecret).Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u-2", p.UserID)
	assert.Equal(t, "bob", p.Username)
}

func TestGuard(t *testing.T) {
	guard := NewGuard(NewVerifier(testSecret))
	token, err := NewSigner(testSecret, time.Hour).Sign(Payload{UserID: "u-1", Username: "alice"})
	require.NoError(t, err)

	p, err := guard(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	p, err = guard("bogus")
	assert.Nil(t, p)
	assert.Equal(t, apperr.Unauthenticated, apperr.KindOf(err))
}

func TestTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/ws?token=from-query", nil)
	assert.Equal(t, "from-query", TokenFromRequest(r))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", TokenFromRequest(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", TokenFromRequest(r))
}
