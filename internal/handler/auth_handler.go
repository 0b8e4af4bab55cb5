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

// AuthHandler manages authentication endpoints.
type AuthHandler struct {
	users     service.UserService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthHandler builds an auth handler instance.
func NewAuthHandler(users service.UserService, validator *validator.Validate, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users:     users,
		validator: validator,
		logger:    logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. The rate limit
// covers login only, and /me needs an authenticated caller, so both
// middlewares come in explicitly.
func (h *AuthHandler) Register(router fiber.Router, loginLimit, authRequired fiber.Handler) {
	if loginLimit != nil {
		router.Post("/login", loginLimit, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Get("/me", authRequired, h.me)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.users.Login(c.Context(), payload)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid username or password")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("login failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "login successful", response)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	actor := actorFromContext(c)

	user, err := h.users.Get(c.Context(), actor.ID, actor)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		requestLogger(h.logger, c).Error().Err(err).Msg("failed to load current user")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "user retrieved", user)
}
