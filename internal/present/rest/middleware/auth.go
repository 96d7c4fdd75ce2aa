package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/storynest/storynest/internal/domain"
	"github.com/storynest/storynest/internal/present/rest/presenter"
	"github.com/storynest/storynest/internal/service"
)

var tracer = otel.Tracer("auth")

type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
	}
}

func bearerToken(header string) (string, error) {
	split := strings.Split(header, " ")
	if len(split) != 2 {
		return "", fmt.Errorf("invalid authentication header")
	}
	authType, token := split[0], split[1]
	if authType != "Bearer" {
		return "", fmt.Errorf("only Bearer is acceptable")
	}
	return token, nil
}

// IdentifyIdentity attaches the requester of a valid bearer token to the
// request context. Requests without one pass through anonymously.
func (s *AuthMiddleware) IdentifyIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Service.IdentifyIdentity")
		defer span.End()

		authHeader := c.Request().Header.Get("authorization")
		// browsers cannot set headers on websocket upgrades
		if authHeader == "" && c.QueryParam("token") != "" {
			authHeader = "Bearer " + c.QueryParam("token")
		}

		if authHeader != "" {
			token, err := bearerToken(authHeader)
			if err != nil {
				span.RecordError(err)
				goto skipCheckAuthorization
			}

			result, err := s.auth.AuthJwt(ctx, token)
			if err != nil {
				span.RecordError(errors.Wrap(err, "AuthMiddleware.IdentifyIdentity: s.auth.AuthJwt failed"))
				goto skipCheckAuthorization
			}

			ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, result.UserID)
			ctx = context.WithValue(ctx, domain.RequesterRoleCtxKey, result.Role)
			span.SetAttributes(attribute.String("RequesterId", result.UserID))
		}

	skipCheckAuthorization:
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequireIdentity rejects requests IdentifyIdentity left anonymous.
func RequireIdentity(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if RequesterID(c) == "" {
			return presenter.Unauthorized(c)
		}
		return next(c)
	}
}

// RequesterID returns the authenticated user id or "".
func RequesterID(c echo.Context) string {
	id, _ := c.Request().Context().Value(domain.RequesterIdCtxKey).(string)
	return id
}
