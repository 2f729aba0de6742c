package middleware

import (
	"context"
	"net/http"

	"github.com/convo-chat/convo/internal/auth"
	"github.com/convo-chat/convo/internal/utils"
)

type contextKey string

const IdentityKey contextKey = "identity"

// AuthJWT rejects requests without a valid bearer token and stores the
// verified payload in the request context.
func AuthJWT(guard auth.Guard) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := guard(auth.TokenFromRequest(r))
			if err != nil {
				utils.JSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), IdentityKey, p)))
		})
	}
}

// Identity returns the payload stored by AuthJWT.
func Identity(ctx context.Context) (*auth.Payload, bool) {
	p, ok := ctx.Value(IdentityKey).(*auth.Payload)
	return p, ok && p != nil
}
