package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Subject string
	Email   string
	Role    string
	JTI     string
}

// AccessTokenClaims is the JWT issued by the identity provider to back-office users.
type AccessTokenClaims struct {
	Email       string      `json:"email,omitempty"`
	Role        string      `json:"role,omitempty"`
	AppMetadata appMetadata `json:"app_metadata,omitempty"`
	jwt.RegisteredClaims
}

type appMetadata struct {
	Role string `json:"role,omitempty"`
}

// EffectiveRole prefers the provider-controlled app_metadata role over the top-level claim.
func (c AccessTokenClaims) EffectiveRole() string {
	if role := strings.TrimSpace(c.AppMetadata.Role); role != "" {
		return role
	}
	return strings.TrimSpace(c.Role)
}
