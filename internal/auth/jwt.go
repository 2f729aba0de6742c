// Package auth verifies the access tokens presented by chat clients.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned for empty, malformed or wrongly signed tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

// Payload is the verified identity carried by an access token.
type Payload struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Claims is the JWT body. userId falls back to the registered subject.
type Claims struct {
	UserID   string `json:"userId,omitempty"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens against a shared secret.
// It holds no mutable state and is safe for concurrent use.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify returns the token payload, or nil and ErrInvalidToken/ErrExpiredToken.
func (v *Verifier) Verify(tokenStr string) (*Payload, error) {
	if tokenStr == "" {
		return nil, ErrInvalidToken
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	p := &Payload{UserID: claims.UserID, Username: claims.Username, Email: claims.Email}
	if p.UserID == "" {
		p.UserID = claims.Subject
	}
	if p.UserID == "" || p.Username == "" {
		return nil, ErrInvalidToken
	}
	return p, nil
}

// Signer issues access tokens. Production tokens come from the identity
// provider; this is used by convoctl and tests.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl}
}

func (s *Signer) Sign(p Payload) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   p.UserID,
		Username: p.Username,
		Email:    p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}
