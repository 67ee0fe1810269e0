// handlers/notifications.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pickup-match-system/middleware"
	"pickup-match-system/services"
)

func SetupNotificationRoutes(app *fiber.App, notificationService *services.NotificationService) {
	// 🔐 Secured routes (acting player required)
	secured := app.Group("/me", middleware.RequirePlayer())

	secured.Get("/notifications", func(c *fiber.Ctx) error {
		notes, err := notificationService.ListForPlayer(c.UserContext(), middleware.PlayerID(c))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"notifications": notes})
	})
}
