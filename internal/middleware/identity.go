// Package middleware resolves who is calling: the client identity of
// public routes and the admin capability of /api/admin routes.
package middleware

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/coin-rewards-ledger/internal/config"
)

const (
	localUserID = "client_id"
	localAdmin  = "admin_user"

	ipPrefix = "ip:"

	// maxClientIDLength matches the users.id column width.
	maxClientIDLength = 255
)

var (
	errReservedPrefix = fmt.Errorf("client id must not start with %q", ipPrefix)
	errIDTooLong      = fmt.Errorf("client id must be at most %d characters", maxClientIDLength)
)

// Identity stores the client id of every request in the context locals.
// Requests without a resolvable identity are rejected with 401, malformed
// header ids with 400.
func Identity(cfg config.IdentityConfig) fiber.Handler {
	resolve := resolver(cfg)
	return func(c *fiber.Ctx) error {
		id, err := resolve(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if id == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "client identity required: set the " + cfg.Header + " header",
			})
		}
		c.Locals(localUserID, id)
		return c.Next()
	}
}

func resolver(cfg config.IdentityConfig) func(c *fiber.Ctx) (string, error) {
	fromHeader := func(c *fiber.Ctx) (string, error) {
		id := strings.TrimSpace(c.Get(cfg.Header))
		if err := checkHeaderID(id); err != nil {
			return "", err
		}
		return id, nil
	}
	fromIP := func(c *fiber.Ctx) (string, error) {
		return ipPrefix + c.IP(), nil
	}

	switch cfg.Mode {
	case config.IdentityHeader:
		return fromHeader
	case config.IdentityIP:
		return fromIP
	default:
		return func(c *fiber.Ctx) (string, error) {
			id, err := fromHeader(c)
			if err != nil || id != "" {
				return id, err
			}
			return fromIP(c)
		}
	}
}

// IP-derived ids own the ip: namespace.
func checkHeaderID(id string) error {
	switch {
	case strings.HasPrefix(id, ipPrefix):
		return errReservedPrefix
	case len(id) > maxClientIDLength:
		return errIDTooLong
	}
	return nil
}

// UserID returns the client id stored by Identity.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

// Admin guards a route group with HTTP basic auth against the configured credential.
func Admin(cfg config.AdminConfig) fiber.Handler {
	return basicauth.New(basicauth.Config{
		Realm: "rewards admin",
		Authorizer: func(user, pass string) bool {
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Email)) == 1
			passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) == 1
			return cfg.Enabled() && userOK && passOK
		},
		Unauthorized: func(c *fiber.Ctx) error {
			log.Warn().
				Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
				Str("path", c.Path()).
				Str("ip", c.IP()).
				Msg("admin authentication failed")
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="rewards admin"`)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "admin authentication required"})
		},
		ContextUsername: localAdmin,
	})
}

// IsAdmin reports whether the request passed the Admin middleware.
func IsAdmin(c *fiber.Ctx) bool {
	user, _ := c.Locals(localAdmin).(string)
	return user != ""
}
