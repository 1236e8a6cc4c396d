package controller

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// ValidatePeerToken checks the shared peer token. An empty configured token
// leaves the digest endpoint open, which is fine for a closed network.
func (c *Controller) ValidatePeerToken(r *http.Request) bool {
	if c.PeerToken == "" {
		return true
	}
	return bearerToken(r) == c.PeerToken
}

// ValidateOperatorToken checks the static operator token.
func (c *Controller) ValidateOperatorToken(r *http.Request) bool {
	return bearerToken(r) == c.OperatorToken
}

// ValidateSessionToken checks a signed operator session JWT carried as the
// bearer token.
func (c *Controller) ValidateSessionToken(r *http.Request) bool {
	raw := bearerToken(r)
	if raw == "" {
		return false
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) { return c.JWTSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}))
	return err == nil && tok.Valid
}

// RequirePeer middleware.
func (c *Controller) RequirePeer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.ValidatePeerToken(r) {
			next.ServeHTTP(w, r)
			return
		}
		c.writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}

// RequireOperator middleware.
func (c *Controller) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c.ValidateOperatorToken(r) || c.ValidateSessionToken(r) {
			next.ServeHTTP(w, r)
			return
		}
		c.writeError(w, http.StatusUnauthorized, "unauthorized")
	})
}
