package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/models"
	"github.com/skillarena/arena-api/internal/service"
	"github.com/skillarena/arena-api/internal/utils"
)

// EventHandler manages event, roster and assignment endpoints.
type EventHandler struct {
	events    service.EventService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewEventHandler builds an event handler instance.
func NewEventHandler(events service.EventService, validator *validator.Validate, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		events:    events,
		validator: validator,
		logger:    logger.With().Str("component", "event_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *EventHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)

	router.Post("/:id/chief-judges", h.addRoster(models.RoleChiefJudge))
	router.Delete("/:id/chief-judges/:userId", h.removeRoster(models.RoleChiefJudge))
	router.Post("/:id/judges", h.addRoster(models.RoleJudge))
	router.Delete("/:id/judges/:userId", h.removeRoster(models.RoleJudge))
	router.Post("/:id/contestants", h.addRoster(models.RoleContestant))
	router.Delete("/:id/contestants/:userId", h.removeRoster(models.RoleContestant))

	router.Post("/:id/assignments", h.assign)
	router.Delete("/:id/assignments", h.unassign)
}

func (h *EventHandler) list(c *fiber.Ctx) error {
	competitionID, err := parseQueryUint(c, "competition_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid competition id")
	}

	events, err := h.events.List(c.Context(), competitionID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "events retrieved", events)
}

func (h *EventHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	event, err := h.events.Get(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "event retrieved", event)
}

func (h *EventHandler) create(c *fiber.Ctx) error {
	var payload dto.EventCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	event, err := h.events.Create(c.Context(), payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "event created", event)
}

func (h *EventHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	var payload dto.EventUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	event, err := h.events.Update(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "event updated", event)
}

func (h *EventHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	if err := h.events.Delete(c.Context(), id, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "event deleted", nil)
}

func (h *EventHandler) addRoster(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
		}

		var payload dto.RosterRequest
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
		if err := h.validator.Struct(payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}

		if err := h.events.AddToRoster(c.Context(), id, role, payload.UserID, actorFromContext(c)); err != nil {
			return h.handleError(c, err)
		}

		return utils.SendSuccess(c, "roster updated", nil)
	}
}

func (h *EventHandler) removeRoster(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "id")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
		}
		userID, err := parseUintParam(c, "userId")
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
		}

		if err := h.events.RemoveFromRoster(c.Context(), id, role, userID, actorFromContext(c)); err != nil {
			return h.handleError(c, err)
		}

		return utils.SendSuccess(c, "roster updated", nil)
	}
}

func (h *EventHandler) assign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	var payload dto.JudgeAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.events.AssignContestant(c.Context(), id, payload, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "contestant assigned", nil)
}

func (h *EventHandler) unassign(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	var payload dto.JudgeAssignmentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.events.UnassignContestant(c.Context(), id, payload, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "contestant unassigned", nil)
}

func (h *EventHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrEventNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "user not found")
	case errors.Is(err, service.ErrAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidRole):
		return utils.SendError(c, fiber.StatusBadRequest, "user role does not match roster")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
