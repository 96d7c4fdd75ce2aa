package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/storynest/storynest/jwt"
)

var tracer = otel.Tracer("auth")

type AuthService struct {
	secret   string
	audience string
}

func NewAuthService(secret, audience string) *AuthService {
	return &AuthService{
		secret:   secret,
		audience: audience,
	}
}

type AuthResult struct {
	UserID string
	Role   string
}

func (s *AuthService) AuthJwt(ctx context.Context, token string) (*AuthResult, error) {
	_, span := tracer.Start(ctx, "Auth.Service.AuthJwt")
	defer span.End()

	claims, err := jwt.Validate(token, s.secret)
	if err != nil {
		err = errors.Wrap(err, "jwt validation failed")
		span.RecordError(err)
		return nil, err
	}

	if s.audience != "" && !slices.Contains(claims.Audience, s.audience) {
		err := fmt.Errorf("jwt audience mismatch: expected %s, got %v", s.audience, claims.Audience)
		span.RecordError(err)
		return nil, err
	}

	if claims.Subject == "" {
		err := fmt.Errorf("jwt has no subject")
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("subject", claims.Subject))
	return &AuthResult{UserID: claims.Subject, Role: claims.Role}, nil
}

// IssueToken signs a token for userID. Used by the dev-token command.
func (s *AuthService) IssueToken(userID, role string, ttl time.Duration) (string, error) {
	return jwt.Create(jwt.NewClaims(userID, role, s.audience, ttl), s.secret)
}
