// Package middleware provides request-scoped Fiber middleware: session
// loading, login enforcement, logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Fiber locals written by LoadSession.
const (
	LocalUserID  = "userID"
	LocalSession = "session"
)

// Session is the authenticated viewer carried by the session cookie.
type Session struct {
	UserID    uint
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

// SessionVerifier validates a raw session token.
type SessionVerifier interface {
	VerifySession(ctx context.Context, token string) (*Session, error)
}

// LoadSession resolves the session cookie into locals. Requests with a
// missing or invalid cookie continue anonymously; an invalid cookie is cleared.
func LoadSession(v SessionVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Cookies(cookieName)
		if raw == "" {
			return c.Next()
		}

		sess, err := v.VerifySession(c.UserContext(), raw)
		if err != nil {
			Logger.DebugContext(c.UserContext(), "discarding session cookie", "error", err.Error())
			c.ClearCookie(cookieName)
			return c.Next()
		}

		c.Locals(LocalUserID, sess.UserID)
		c.Locals(LocalSession, sess)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, sess.UserID))
		return c.Next()
	}
}

// CurrentSession returns the viewer's session, if logged in.
func CurrentSession(c *fiber.Ctx) (*Session, bool) {
	sess, ok := c.Locals(LocalSession).(*Session)
	return sess, ok && sess != nil
}

// LoginRequired redirects anonymous callers to loginPath with a next
// parameter holding the original path and query.
func LoginRequired(loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := CurrentSession(c); ok {
			return c.Next()
		}
		return c.Redirect(LoginURL(loginPath, c.OriginalURL()), fiber.StatusFound)
	}
}

// LoginURL builds loginPath?next=<next>, leaving slashes unescaped.
func LoginURL(loginPath, next string) string {
	q := url.Values{"next": {next}}.Encode()
	return loginPath + "?" + strings.ReplaceAll(q, "%2F", "/")
}

// SafeNext returns next when it is a local absolute path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	return next
}
