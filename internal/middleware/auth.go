package middleware

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
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"

	RoleUser   = "user"
	RoleSeller = "seller"

	UserCookie   = "token"
	SellerCookie = "sellerToken"
)

var errNoToken = errors.New("no token")

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type unauthorized struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Auth verifies an HS256 token taken from the Authorization header or, failing
// that, from the first of cookies present on the request. The token subject
// becomes the request's user id.
func Auth(secret []byte, cookies ...string) echo.MiddlewareFunc {
	keyFunc := func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := tokenFrom(c, cookies)
			if err != nil {
				return deny(c)
			}

			claims := &Claims{}
			_, err = jwt.ParseWithClaims(raw, claims, keyFunc,
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			)
			if err != nil || claims.Subject == "" {
				return deny(c)
			}

			role := claims.Role
			if role == "" {
				role = RoleUser
			}

			c.Set(ContextKeyUserID, claims.Subject)
			c.Set(ContextKeyRole, role)
			return next(c)
		}
	}
}

func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if got, _ := c.Get(ContextKeyRole).(string); got != role {
				return c.JSON(http.StatusForbidden, &unauthorized{Message: "Not Authorized"})
			}
			return next(c)
		}
	}
}

// IssueToken signs a token for userID. It is what the auth service hands out
// and what tests use to call protected routes.
func IssueToken(secret []byte, userID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func UserID(c echo.Context) string {
	id, _ := c.Get(ContextKeyUserID).(string)
	return id
}

func tokenFrom(c echo.Context, cookies []string) (string, error) {
	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
			return token, nil
		}
	}

	for _, name := range cookies {
		if cookie, err := c.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value, nil
		}
	}
	return "", errNoToken
}

func deny(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, &unauthorized{Message: "Not Authorized"})
}
