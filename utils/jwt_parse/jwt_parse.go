package jwt_parse

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joy095/academy/logger"
)

// UpstreamClaims is what the front-end needs from the backend's access token.
// The signature is the backend's business; the token is only read here.
type UpstreamClaims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

var ErrMalformedToken = errors.New("malformed access token")

// ParseUpstreamToken reads role and expiry claims without verifying the signature.
// Tokens that are not JWTs yield empty claims and no error: the backend may issue
// opaque tokens, in which case the role comes from the login response instead.
func ParseUpstreamToken(tokenString string) (UpstreamClaims, error) {
	var out UpstreamClaims
	if tokenString == "" {
		return out, ErrMalformedToken
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		logger.InfoLogger.Debugf("Access token is not a JWT: %v", err)
		return out, nil
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if sub, ok := claims["user_id"].(string); ok && out.Subject == "" {
		out.Subject = sub
	}
	switch role := claims["role"].(type) {
	case string:
		out.Role = role
	case nil:
	default:
		return out, fmt.Errorf("%w: role claim has type %T", ErrMalformedToken, role)
	}
	return out, nil
}
