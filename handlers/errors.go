// handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"pickup-match-system/balance"
	"pickup-match-system/services"
)

// statusFor maps domain errors to an HTTP status and a client-facing message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, balance.ErrInfeasiblePartition):
		return fiber.StatusBadRequest, "cannot balance these groups"
	case balance.IsValidation(err):
		return fiber.StatusBadRequest, err.Error()

	case errors.Is(err, services.ErrPlayerNotFound),
		errors.Is(err, services.ErrMatchNotFound):
		return fiber.StatusNotFound, err.Error()

	case errors.Is(err, services.ErrDuplicateVote),
		errors.Is(err, services.ErrMatchAlreadyClosed),
		errors.Is(err, services.ErrAlreadyInMatch),
		errors.Is(err, services.ErrMatchFull),
		errors.Is(err, services.ErrPlayerNameTaken),
		errors.Is(err, services.ErrVotingStarted),
		errors.Is(err, services.ErrRosterLocked):
		return fiber.StatusConflict, err.Error()

	case errors.Is(err, services.ErrEvaluationNotAllowed),
		errors.Is(err, services.ErrNotParticipant):
		return fiber.StatusForbidden, err.Error()

	case errors.Is(err, services.ErrInvalidResult),
		errors.Is(err, services.ErrInvalidAttribute),
		errors.Is(err, services.ErrInvalidPlayerName),
		errors.Is(err, services.ErrInvalidCapacity),
		errors.Is(err, services.ErrInvalidSide),
		errors.Is(err, services.ErrTeamsNotAssigned),
		errors.Is(err, services.ErrNotEnoughPlayers),
		errors.Is(err, services.ErrEmptyPhoto):
		return fiber.StatusBadRequest, err.Error()

	case errors.Is(err, services.ErrPhotoStoreDisabled):
		return fiber.StatusServiceUnavailable, err.Error()
	}
	return fiber.StatusInternalServerError, "internal error"
}

func respondError(c *fiber.Ctx, err error) error {
	status, msg := statusFor(err)
	if status == fiber.StatusInternalServerError {
		// the cause stays in the log; driver errors are not for clients
		log.Error().Err(err).Str("path", c.Path()).Msg("❌ request failed")
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
