package middleware

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/Belladihno/paystack-wallet-service/internal/apikey"
	"github.com/Belladihno/paystack-wallet-service/internal/user"
)

const (
	apiKeyHeader    = "X-API-Key"
	userIDHeader    = "X-User-ID"
	userEmailHeader = "X-User-Email"

	localUserID      = "user_id"
	localUserEmail   = "user_email"
	localPermissions = "permissions"
)

// Auth authenticates requests either by API key or by a pre-authenticated
// session identity injected by the external auth layer. Session callers hold
// all permissions; API key callers hold the permissions granted at issuance.
func Auth(keys *apikey.Service, users user.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret := c.Get(apiKeyHeader); secret != "" {
			identity, err := keys.Validate(c.UserContext(), secret)
			if err != nil {
				if errors.Is(err, apikey.ErrNoMatch) {
					return fiber.NewError(http.StatusUnauthorized, "invalid API key")
				}
				return err
			}
			u, err := users.ByID(c.UserContext(), identity.UserID)
			if err != nil {
				return fiber.NewError(http.StatusUnauthorized, "unknown key owner")
			}
			c.Locals(localUserID, u.ID)
			c.Locals(localUserEmail, u.Email)
			c.Locals(localPermissions, identity.Permissions)
			return c.Next()
		}

		if userID := c.Get(userIDHeader); userID != "" {
			u, err := users.ByID(c.UserContext(), userID)
			if err != nil {
				return fiber.NewError(http.StatusUnauthorized, "unknown user")
			}
			email := c.Get(userEmailHeader)
			if email == "" {
				email = u.Email
			}
			c.Locals(localUserID, u.ID)
			c.Locals(localUserEmail, email)
			c.Locals(localPermissions, apikey.AllPermissions())
			return c.Next()
		}

		return fiber.NewError(http.StatusUnauthorized, "missing credentials")
	}
}

// RequirePermission rejects callers whose credential does not grant the
// permission.
func RequirePermission(perm apikey.Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		granted, _ := c.Locals(localPermissions).([]apikey.Permission)
		for _, p := range granted {
			if p == perm {
				return c.Next()
			}
		}
		return fiber.NewError(http.StatusUnauthorized, "insufficient permission")
	}
}

// UserID returns the authenticated user id set by Auth.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// UserEmail returns the authenticated user email set by Auth.
func UserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals(localUserEmail).(string)
	return email
}
