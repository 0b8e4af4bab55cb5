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

// ScoringHandler manages rubric and scoring record endpoints.
type ScoringHandler struct {
	scoring   service.ScoringService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewScoringHandler builds a scoring handler instance.
func NewScoringHandler(scoring service.ScoringService, validator *validator.Validate, logger zerolog.Logger) *ScoringHandler {
	return &ScoringHandler{
		scoring:   scoring,
		validator: validator,
		logger:    logger.With().Str("component", "scoring_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. All routes hang
// off a module.
func (h *ScoringHandler) Register(router fiber.Router) {
	router.Get("/:id/criteria", h.getCriteria)
	router.Post("/:id/criteria", h.createCriteria)
	router.Post("/:id/criteria/import", h.importCriteria)
	router.Post("/:id/criteria/items", h.addItem)
	router.Patch("/:id/criteria/items/:itemId", h.updateItem)
	router.Delete("/:id/criteria/items/:itemId", h.deleteItem)

	router.Get("/:id/records", h.listRecords)
	router.Get("/:id/records/:contestantId", h.getRecord)
	router.Put("/:id/records/:contestantId/score", h.updateJudgeScore)
}

func (h *ScoringHandler) getCriteria(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	criteria, err := h.scoring.GetCriteria(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "criteria retrieved", criteria)
}

func (h *ScoringHandler) createCriteria(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	var payload struct {
		Items []dto.ScoringItemRequest `json:"items" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	criteria, err := h.scoring.CreateCriteria(c.Context(), id, payload.Items, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "criteria created", criteria)
}

// importCriteria accepts a raw rubric document and validates it against the
// import schema before anything is persisted.
func (h *ScoringHandler) importCriteria(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	criteria, err := h.scoring.ImportCriteria(c.Context(), id, c.Body(), actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "criteria imported", criteria)
}

func (h *ScoringHandler) addItem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	var payload dto.ScoringItemRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.scoring.AddItem(c.Context(), id, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "item added", item)
}

func (h *ScoringHandler) updateItem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	itemID, err := parseUintParam(c, "itemId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid item id")
	}

	var payload dto.ScoringItemUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	item, err := h.scoring.UpdateItem(c.Context(), id, itemID, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "item updated", item)
}

func (h *ScoringHandler) deleteItem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	itemID, err := parseUintParam(c, "itemId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid item id")
	}

	if err := h.scoring.DeleteItem(c.Context(), id, itemID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "item deleted", nil)
}

func (h *ScoringHandler) listRecords(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	records, err := h.scoring.GetScoringRecords(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "scoring records retrieved", records)
}

func (h *ScoringHandler) getRecord(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	contestantID, err := parseUintParam(c, "contestantId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid contestant id")
	}

	record, err := h.scoring.GetScoringRecord(c.Context(), id, contestantID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "scoring record retrieved", record)
}

func (h *ScoringHandler) updateJudgeScore(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	contestantID, err := parseUintParam(c, "contestantId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid contestant id")
	}

	var payload dto.JudgeScoreRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.scoring.UpdateJudgeScore(c.Context(), id, contestantID, payload, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score updated", result)
}

func (h *ScoringHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "module not found")
	case errors.Is(err, service.ErrCriteriaNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scoring criteria not found")
	case errors.Is(err, service.ErrItemNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scoring item not found")
	case errors.Is(err, service.ErrRecordNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "scoring record not found")
	case errors.Is(err, service.ErrUserNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "contestant not found")
	case errors.Is(err, service.ErrAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrCriteriaExists):
		return utils.SendError(c, fiber.StatusConflict, "scoring criteria already exists")
	case errors.Is(err, service.ErrScoringFrozen):
		return utils.SendError(c, fiber.StatusConflict, "scoring has been finished")
	case errors.Is(err, service.ErrModuleNotScoring):
		return utils.SendError(c, fiber.StatusConflict, "module is not in scoring status")
	case errors.Is(err, service.ErrScoreOutOfRange):
		return utils.SendError(c, fiber.StatusBadRequest, "score exceeds the item's maximum")
	case errors.Is(err, service.ErrInvalidImport):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
