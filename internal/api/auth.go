package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	viewerKey = "viewer"
	roleKey   = "role"

	// RoleAdmin may inspect and retry background jobs
	RoleAdmin = "admin"

	// Development headers, honored only when no JWT secret is configured
	DevUserHeader = "X-User-ID"
	DevRoleHeader = "X-User-Role"
)

// Claims are the JWT claims carried by API tokens; the subject is the user id
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// NewToken signs an HS256 token for userID
func NewToken(secret, userID, role string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates a token and returns its claims
func ParseToken(secret, token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Viewer resolves the optional viewer identity. Requests without credentials
// continue as anonymous; a present but invalid token is rejected.
func Viewer(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if secret == "" {
				if id := strings.TrimSpace(c.Request().Header.Get(DevUserHeader)); id != "" {
					c.Set(viewerKey, id)
					c.Set(roleKey, c.Request().Header.Get(DevRoleHeader))
				}
				return next(c)
			}

			h := c.Request().Header.Get(echo.HeaderAuthorization)
			if h == "" {
				return next(c)
			}
			if !strings.HasPrefix(h, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing or invalid token")
			}

			claims, err := ParseToken(secret, strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			c.Set(viewerKey, claims.Subject)
			c.Set(roleKey, claims.Role)
			return next(c)
		}
	}
}

// RequireRole rejects viewers without role
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ViewerID(c) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if r, _ := c.Get(roleKey).(string); r != role {
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}

// ViewerID returns the signed-in user id, or "" for anonymous requests
func ViewerID(c echo.Context) string {
	id, _ := c.Get(viewerKey).(string)
	return id
}
