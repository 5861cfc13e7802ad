package middleware

import (
	"dinedash-backend/internal/apperr"
	"time"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

const claimsContextKey = "staff"

type StaffClaims struct {
	Name  string `json:"name"`
	Staff bool   `json:"staff"`
	jwt.RegisteredClaims
}

// StaffOnly returns the middleware chain for privileged routes: a valid
// HS256 token is required (401 otherwise) and it must carry the staff
// claim (403 otherwise).
func StaffOnly(secret string) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		echojwt.WithConfig(echojwt.Config{
			SigningKey: []byte(secret),
			ContextKey: claimsContextKey,
			NewClaimsFunc: func(c echo.Context) jwt.Claims {
				return new(StaffClaims)
			},
			ErrorHandler: func(c echo.Context, err error) error {
				return apperr.Wrap(apperr.KindUnauthorized, err, "missing or invalid staff token")
			},
		}),
		requireStaff,
	}
}

func requireStaff(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims := StaffFromContext(c)
		if claims == nil || !claims.Staff {
			return apperr.New(apperr.KindForbidden, "staff access required")
		}
		return next(c)
	}
}

func StaffFromContext(c echo.Context) *StaffClaims {
	token, ok := c.Get(claimsContextKey).(*jwt.Token)
	if !ok {
		return nil
	}
	claims, _ := token.Claims.(*StaffClaims)
	return claims
}

// IssueToken signs a token for name. Used by the token command and tests.
func IssueToken(secret, name string, staff bool, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &StaffClaims{
		Name:  name,
		Staff: staff,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
