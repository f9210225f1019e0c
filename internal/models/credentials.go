package models

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Credentials is the authentication material for one server connection.
//
// Two shapes exist: legacy single-token servers populate Token only, and
// never expire client-side. Newer servers issue an access/refresh token
// pair; only that shape is subject to expiry-based refresh.
type Credentials struct {
	Token        string `json:"token,omitempty"`
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt,omitempty"` // epoch seconds
}

// NewLegacyCredentials creates Credentials for a legacy single-token server.
func NewLegacyCredentials(token string) Credentials {
	return Credentials{Token: token}
}

// NewBearerCredentials creates Credentials from an issued token pair.
// ExpiresAt is taken from the access token's exp claim when expiresAt is zero.
func NewBearerCredentials(accessToken, refreshToken string, expiresAt int64) Credentials {
	if expiresAt == 0 {
		if exp, err := DecodeJWTExpiry(accessToken); err == nil {
			expiresAt = exp
		}
	}
	return Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}
}

// IsBearer reports whether the credentials are a refreshable token pair.
func (c Credentials) IsBearer() bool {
	return c.AccessToken != ""
}

// Bearer returns the Authorization header value for the credentials.
func (c Credentials) Bearer() string {
	if c.IsBearer() {
		return "Bearer " + c.AccessToken
	}
	return "Bearer " + c.Token
}

// ExpiresWithin reports whether bearer credentials expire before now+buffer.
// Legacy credentials never expire.
func (c Credentials) ExpiresWithin(now time.Time, buffer time.Duration) bool {
	if !c.IsBearer() {
		return false
	}
	return now.Add(buffer).Unix() >= c.ExpiresAt
}

// DecodeJWTExpiry extracts the exp claim from a JWT access token.
// The token is not verified; the client trusts the issuing server and
// only needs the expiry for refresh scheduling.
func DecodeJWTExpiry(token string) (int64, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return 0, fmt.Errorf("failed to parse access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, fmt.Errorf("access token has no exp claim")
	}

	return exp.Unix(), nil
}
