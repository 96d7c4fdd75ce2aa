// Package jwt issues and checks the HS256 bearer tokens accepted by the API.
package jwt

import (
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// Claims carried by storynest tokens. Subject is the user id.
type Claims struct {
	Role     string `json:"role,omitempty"`
	FamilyID string `json:"familyId,omitempty"`
	gojwt.RegisteredClaims
}

// NewClaims fills the registered claims for a token valid for ttl.
func NewClaims(userID, role, audience string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		Role: role,
		RegisteredClaims: gojwt.RegisteredClaims{
			Issuer:    "storynest",
			Subject:   userID,
			Audience:  gojwt.ClaimStrings{audience},
			IssuedAt:  gojwt.NewNumericDate(now),
			ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// Create signs claims with secret
func Create(claims Claims, secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Validate checks the signature and expiry of token
func Validate(token, secret string) (*Claims, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}

	var claims Claims
	parsed, err := gojwt.ParseWithClaims(token, &claims, func(*gojwt.Token) (any, error) {
		return []byte(secret), nil
	}, gojwt.WithValidMethods([]string{gojwt.SigningMethodHS256.Alg()}), gojwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("invalid jwt")
	}

	return &claims, nil
}
