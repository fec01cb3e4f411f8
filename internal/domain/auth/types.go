package auth

import "time"

// Config drives token verification.
type Config struct {
	// Secret enables locally signed HS256 tokens (development and tests).
	Secret string
	// Issuer switches to OpenID Connect verification against the issuer's keys.
	Issuer   string
	ClientID string
	TokenTTL time.Duration
}

// Claims identify the caller of a request.
type Claims struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}
