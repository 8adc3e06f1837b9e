package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the session token claims. The registered ID (jti) is the
// session id; a token is only honoured while its session row is live.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}
