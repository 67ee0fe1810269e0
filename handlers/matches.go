// handlers/matches.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"pickup-match-system/middleware"
	"pickup-match-system/models"
	"pickup-match-system/services"
)

func SetupMatchRoutes(app *fiber.App, matchService *services.MatchService) {
	app.Post("/matches", func(c *fiber.Ctx) error {
		var in services.CreateMatchInput
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&in); err != nil {
				return badRequest(c, "invalid request body (starts_at must be RFC3339)")
			}
		}
		m, err := matchService.CreateMatch(c.UserContext(), in)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(m)
	})

	app.Get("/matches", func(c *fiber.Ctx) error {
		matches, err := matchService.ListOpenMatches(c.UserContext())
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"matches": matches})
	})

	app.Get("/matches/:id", func(c *fiber.Ctx) error {
		d, err := matchService.GetMatch(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(d)
	})

	app.Post("/matches/:id/players", func(c *fiber.Ctx) error {
		var body struct {
			PlayerID string       `json:"player_id"`
			Side     *models.Side `json:"side"`
		}
		if err := c.BodyParser(&body); err != nil || body.PlayerID == "" {
			return badRequest(c, "player_id is required")
		}
		mp, err := matchService.AddPlayer(c.UserContext(), c.Params("id"), body.PlayerID, body.Side)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(mp)
	})

	app.Post("/matches/:id/bots", func(c *fiber.Ctx) error {
		added, err := matchService.FillWithBots(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{"added": added})
	})

	app.Post("/matches/:id/teams", func(c *fiber.Ctx) error {
		var body struct {
			Groups [][]string `json:"groups"`
		}
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&body); err != nil {
				return badRequest(c, "invalid request body")
			}
		}
		res, err := matchService.GenerateTeams(c.UserContext(), c.Params("id"), body.Groups)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	})

	app.Get("/matches/:id/report", func(c *fiber.Ctx) error {
		report, err := matchService.BalanceReport(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(report)
	})

	app.Post("/matches/:id/votes", middleware.RequirePlayer(), func(c *fiber.Ctx) error {
		var body struct {
			Result models.VoteResult `json:"result"`
		}
		if err := c.BodyParser(&body); err != nil {
			return badRequest(c, "invalid request body")
		}
		vote, err := matchService.RecordVote(c.UserContext(), c.Params("id"), middleware.PlayerID(c), body.Result)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(vote)
	})
}
