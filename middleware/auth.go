// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	HeaderPlayerID = "X-Player-ID"
	LocalPlayerID  = "player_id"
)

// PlayerContextMiddleware copies the acting player set by the Gateway into
// the request locals. Handlers that act on behalf of a player use RequirePlayer.
func PlayerContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		playerID := strings.TrimSpace(c.Get(HeaderPlayerID))
		c.Locals(LocalPlayerID, playerID)
		if playerID != "" {
			log.Debug().Str("player_id", playerID).Str("path", c.Path()).Msg("👤 [PLAYER_CTX]")
		}
		return c.Next()
	}
}

// RequirePlayer rejects requests without an acting player.
func RequirePlayer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if PlayerID(c) == "" {
			log.Warn().Str("path", c.Path()).Msg("❌ [PLAYER_CTX] X-Player-ID required but missing")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-Player-ID — request must come through gateway with player context",
			})
		}
		return c.Next()
	}
}

// PlayerID returns the acting player for this request, or "".
func PlayerID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalPlayerID).(string)
	return id
}
