package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/usnistgov/oar-pdr-sub001/internal/domain"
)

var tracer = otel.Tracer("auth")

// IdentityMiddleware records who is asking. The SSO proxy in front of the
// service establishes identity and forwards it in a trusted header; bearer
// tokens are stashed raw for per-route validation against the resource.
type IdentityMiddleware struct{}

func NewIdentityMiddleware() *IdentityMiddleware {
	return &IdentityMiddleware{}
}

func (m *IdentityMiddleware) IdentifyRequester(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, span := tracer.Start(c.Request().Context(), "Auth.Middleware.IdentifyRequester")
		defer span.End()

		if user := c.Request().Header.Get(domain.RequesterIdHeader); user != "" {
			ctx = context.WithValue(ctx, domain.RequesterIdCtxKey, user)
			span.SetAttributes(attribute.String("RequesterId", user))
		}

		authHeader := c.Request().Header.Get("authorization")
		if authHeader != "" {
			split := strings.Split(authHeader, " ")
			if len(split) != 2 || !strings.EqualFold(split[0], "Bearer") {
				span.RecordError(fmt.Errorf("invalid authorization header"))
			} else {
				ctx = context.WithValue(ctx, domain.RequesterTokenCtxKey, split[1])
			}
		}

		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

// RequesterID extracts the SSO-established identity, or "".
func RequesterID(ctx context.Context) string {
	id, _ := ctx.Value(domain.RequesterIdCtxKey).(string)
	return id
}

// RequesterToken extracts the raw bearer token, or "".
func RequesterToken(ctx context.Context) string {
	token, _ := ctx.Value(domain.RequesterTokenCtxKey).(string)
	return token
}
