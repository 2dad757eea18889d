package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"uploadapi/internal/audit"
)

// AuthCookieName is the cookie the portal sets after sign-in.
const AuthCookieName = "auth-token"

// RequireCredential rejects requests that carry no credential before the
// body is read, so an unauthenticated upload never gets its multipart
// payload parsed. The middleware records the audit event itself; kind
// selects between the upload and access variants.
//
// With an empty jwtSecret only credential presence is checked, matching
// the portal's delegation of session validation to its backend. When a
// secret is configured the credential must additionally be a valid HS256
// token.
func RequireCredential(rec audit.Recorder, jwtSecret string, kind audit.Kind, severity audit.Severity) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cred := credentialFrom(c)
		if cred == "" || !credentialValid(cred, jwtSecret) {
			rec.Record(c.UserContext(), audit.NewEvent(kind, severity, c.IP(), audit.UnauthorizedContext{
				Method:    c.Method(),
				Path:      c.Path(),
				UserAgent: c.Get(fiber.HeaderUserAgent),
			}))
			return fiber.NewError(fiber.StatusUnauthorized, "authentication required")
		}
		return c.Next()
	}
}

func credentialFrom(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); h != "" {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Cookies(AuthCookieName)
}

func credentialValid(cred, jwtSecret string) bool {
	if jwtSecret == "" {
		return true
	}
	_, err := jwt.Parse(cred, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	return err == nil
}
