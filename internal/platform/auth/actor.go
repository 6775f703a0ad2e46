package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const actorKey = "auth_actor"

// AnonymousActor is recorded when no verifiable identity accompanies a request.
const AnonymousActor = "anonymous"

// ActorMiddleware resolves the acting user for audit attribution. When secret
// is non-empty, a bearer token is HS256-verified and its subject claim becomes
// the actor; a missing or invalid token falls back to anonymous rather than
// rejecting the request, since the catalog carries no access control of its
// own.
func ActorMiddleware(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(actorKey, resolveActor(c, secret))
			return next(c)
		}
	}
}

func resolveActor(c echo.Context, secret string) string {
	if secret == "" {
		return AnonymousActor
	}
	header := c.Request().Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return AnonymousActor
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return AnonymousActor
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return AnonymousActor
	}
	return sub
}

// Actor returns the acting user resolved for this request.
func Actor(c echo.Context) string {
	if actor, ok := c.Get(actorKey).(string); ok && actor != "" {
		return actor
	}
	return AnonymousActor
}
