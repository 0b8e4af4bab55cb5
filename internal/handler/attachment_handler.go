package handler

import (
	"errors"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skillarena/arena-api/internal/service"
	"github.com/skillarena/arena-api/internal/utils"
)

// AttachmentHandler manages problem and answer file endpoints.
type AttachmentHandler struct {
	attachments service.AttachmentService
	logger      zerolog.Logger
}

// NewAttachmentHandler builds an attachment handler instance.
func NewAttachmentHandler(attachments service.AttachmentService, logger zerolog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: attachments,
		logger:      logger.With().Str("component", "attachment_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. All routes hang
// off a module.
func (h *AttachmentHandler) Register(router fiber.Router) {
	router.Get("/:id/problem-attachments", h.listProblem)
	router.Post("/:id/problem-attachments", h.uploadProblem)
	router.Delete("/:id/problem-attachments/:attachmentId", h.deleteProblem)

	router.Get("/:id/answer-attachments", h.listAnswers)
	router.Post("/:id/answer-attachments", h.uploadAnswer)
	router.Delete("/:id/answer-attachments/:attachmentId", h.deleteAnswer)
}

// RegisterDownload attaches the raw download route.
func (h *AttachmentHandler) RegisterDownload(router fiber.Router) {
	router.Get("/download/*", h.download)
}

func (h *AttachmentHandler) listProblem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	attachments, err := h.attachments.ListProblem(c.Context(), id, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachments retrieved", attachments)
}

func (h *AttachmentHandler) uploadProblem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	filename, content, err := readUpload(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attachment, err := h.attachments.UploadProblem(c.Context(), id, filename, content, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attachment uploaded", attachment)
}

func (h *AttachmentHandler) deleteProblem(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	attachmentID, err := parseUintParam(c, "attachmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attachment id")
	}

	if err := h.attachments.DeleteProblem(c.Context(), id, attachmentID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachment deleted", nil)
}

func (h *AttachmentHandler) listAnswers(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	var contestantID uint
	if parsed, err := parseQueryUint(c, "contestant_id"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid contestant id")
	} else if parsed != nil {
		contestantID = *parsed
	}

	attachments, err := h.attachments.ListAnswers(c.Context(), id, contestantID, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachments retrieved", attachments)
}

func (h *AttachmentHandler) uploadAnswer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}

	filename, content, err := readUpload(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	attachment, err := h.attachments.UploadAnswer(c.Context(), id, filename, content, actorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attachment uploaded", attachment)
}

func (h *AttachmentHandler) deleteAnswer(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid module id")
	}
	attachmentID, err := parseUintParam(c, "attachmentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid attachment id")
	}

	if err := h.attachments.DeleteAnswer(c.Context(), id, attachmentID, actorFromContext(c)); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "attachment deleted", nil)
}

func (h *AttachmentHandler) download(c *fiber.Ctx) error {
	path := c.Params("*")
	if path == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "missing attachment path")
	}

	content, contentType, err := h.attachments.Download(c.Context(), path)
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(content)
}

func readUpload(c *fiber.Ctx) (string, []byte, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return "", nil, errors.New("file is required")
	}

	file, err := header.Open()
	if err != nil {
		return "", nil, errors.New("unable to read file")
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", nil, errors.New("unable to read file")
	}

	return header.Filename, content, nil
}

func (h *AttachmentHandler) handleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrModuleNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "module not found")
	case errors.Is(err, service.ErrAttachmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "attachment not found")
	case errors.Is(err, service.ErrAccessDenied):
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	case errors.Is(err, service.ErrModuleNotInProgress):
		return utils.SendError(c, fiber.StatusConflict, "module is not in progress")
	case errors.Is(err, service.ErrUnsupportedFileType):
		return utils.SendError(c, fiber.StatusUnsupportedMediaType, "unsupported file type")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
