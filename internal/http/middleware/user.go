package middleware

import (
	"github.com/gofiber/fiber/v2"

	"filevault/internal/quota"
)

const (
	// UserIDHeader carries the acting user's identity. Authentication is
	// handled upstream; this service trusts the header.
	UserIDHeader = "X-User-ID"
	// UserIDLocalKey is the key used to store the user ID in Fiber's context locals.
	UserIDLocalKey = "user_id"
)

// User stores the acting user in context locals and lazily creates the
// user's quota ledger row with the default allowance on first sight.
func User(ledger quota.Ledger, defaultQuotaBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if uid := c.Get(UserIDHeader); uid != "" {
			if err := ledger.EnsureUser(c.UserContext(), uid, defaultQuotaBytes); err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "ensure user")
			}
			c.Locals(UserIDLocalKey, uid)
		}
		return c.Next()
	}
}
