package auth

import (
	"net/http"
	"strings"

	"github.com/convo-chat/convo/internal/apperr"
)

// Guard authenticates a raw access token. The websocket gateway runs the
// same guard on connect and before every inbound event; the REST routes run
// it once per request.
type Guard func(rawToken string) (*Payload, error)

func NewGuard(v *Verifier) Guard {
	return func(rawToken string) (*Payload, error) {
		p, err := v.Verify(rawToken)
		if err != nil {
			return nil, apperr.Unauthorized(err.Error())
		}
		return p, nil
	}
}

// TokenFromRequest reads a bearer token from the Authorization header,
// falling back to the token query parameter used by browser websockets.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
