// handlers/players.go
package handlers

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"

	"pickup-match-system/middleware"
	"pickup-match-system/services"
)

const maxPhotoBytes = 5 << 20

func SetupPlayerRoutes(app *fiber.App, playerService *services.PlayerService, evaluationService *services.EvaluationService) {
	app.Post("/players", func(c *fiber.Ctx) error {
		var in services.CreatePlayerInput
		if err := c.BodyParser(&in); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := playerService.CreatePlayer(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	})

	app.Get("/players", func(c *fiber.Ctx) error {
		players, err := playerService.ListPlayers(c.UserContext(), c.QueryBool("bots", false))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"players": players})
	})

	app.Get("/players/:id", func(c *fiber.Ctx) error {
		p, err := playerService.GetPlayer(c.UserContext(), c.Params("id"))
		if errors.Is(err, services.ErrPlayerNotFound) {
			// fall back to the slug so profile links stay readable
			p, err = playerService.GetPlayerBySlug(c.UserContext(), c.Params("id"))
		}
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})

	app.Get("/players/:id/relations", func(c *fiber.Ctx) error {
		summary, err := playerService.GetRelations(c.UserContext(), c.Params("id"), c.QueryInt("limit", 5))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(summary)
	})

	app.Post("/players/:id/photo", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("photo")
		if err != nil {
			return badRequest(c, "photo file is required")
		}
		if fh.Size > maxPhotoBytes {
			return badRequest(c, "photo is larger than 5MB")
		}
		f, err := fh.Open()
		if err != nil {
			return respondError(c, err)
		}
		defer f.Close()
		body, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
		if err != nil {
			return respondError(c, err)
		}

		url, err := playerService.UploadPhoto(c.UserContext(), c.Params("id"), fh.Filename, fh.Header.Get("Content-Type"), body)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"photo_url": url})
	})

	app.Post("/players/:id/evaluations", middleware.RequirePlayer(), func(c *fiber.Ctx) error {
		var body struct {
			Ratings map[string]int `json:"ratings"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
		p, err := evaluationService.Evaluate(c.UserContext(), middleware.PlayerID(c), c.Params("id"), body.Ratings)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(p)
	})
}
