package middleware

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const externalIDKey = "external_id"

// Auth validates the session JWT and injects the provider subject into the
// request context. It never rejects on its own: requests without a usable
// token simply carry no subject, and the gate decides what that means for
// the route. Only the identity claims of the token are trusted, role and
// permissions are always re-read from the store.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return next(c)
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return next(c)
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return next(c)
			}

			if sub, ok := claims["sub"].(string); ok && sub != "" {
				c.Set(externalIDKey, sub)
			}

			return next(c)
		}
	}
}

// ExternalID returns the authenticated provider subject for the request,
// or "" when the request carries no valid session.
func ExternalID(c echo.Context) string {
	if v, ok := c.Get(externalIDKey).(string); ok {
		return v
	}
	return ""
}
