package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/internal/dto"
	"github.com/skillarena/arena-api/internal/service"
	"github.com/skillarena/arena-api/internal/utils"
)

// ModuleHandler manages module lifecycle and evaluation trigger endpoints.
type ModuleHandler struct {
	modules    service.ModuleService
	evaluation service.EvaluationService
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewModuleHandler builds a module handler instance.
func NewModuleHandler(modules service.ModuleService, evaluation service.EvaluationService, validator *validator.Validate, logger zerolog.Logger) *ModuleHandler {
	return &ModuleHandler{
		modules:    modules,
		evaluation: evaluation,
		validator:  validator,
		logger:     logger.With().Str("component", "module_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *ModuleHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Put("/:id/status", h.updateStatus)

	router.Post("/:id/evaluate", h.triggerModule)
	router.Post("/:id/evaluate/:contestantId", h.triggerContestant)
}

func (h *ModuleHandler) list(c *fiber.Ctx) error {
	eventID, err := parseQueryUint(c, "event_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid event id")
	}

	modules, err := h.modules.List(c.Context(), eventID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "modules retrieved", modules)
}

func (h *ModuleHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	module, err := h.modules.Get(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module retrieved", module)
}

func (h *ModuleHandler) create(c *fiber.Ctx) error {
	var payload dto.ModuleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.modules.Create(c.Context(), payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *ModuleHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	var payload dto.ModuleUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.modules.Update(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module updated", module)
}

func (h *ModuleHandler) updateStatus(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	var payload dto.ModuleStatusRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.modules.UpdateStatus(c.Context(), id, payload.Status, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module status updated", module)
}

func (h *ModuleHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	if err := h.modules.Delete(c.Context(), id, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "module deleted", nil)
}

// triggerModule queues a whole-module evaluation run. The response reports
// acceptance only; results land asynchronously.
func (h *ModuleHandler) triggerModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	if err := h.evaluation.TriggerModule(c.Context(), id, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "evaluation started", nil)
}

func (h *ModuleHandler) triggerContestant(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	contestantID, err := parseUintParam(c, "contestantId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid contestant id")
	}

	if err := h.evaluation.TriggerContestant(c.Context(), id, contestantID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusAccepted, "evaluation started", nil)
}

func (h *ModuleHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "module not found")
	case errors.Is(err, service.ErrEventNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "event not found")
	case errors.Is(err, service.ErrAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrInvalidStatus):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module status")
	case errors.Is(err, service.ErrEvaluationInProgress):
		return utils.SendError(c, fiber.StatusConflict, "evaluation already in progress")
	case errors.Is(err, service.ErrWorkerSaturated):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "evaluation queue is full")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
