package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codeshare-labs/codeshare-api/internal/dto"
	"github.com/codeshare-labs/codeshare-api/internal/service"
	"github.com/codeshare-labs/codeshare-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service service.SubmissionService
	logger  zerolog.Logger
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service: service,
		logger:  logger.With().Str("component", "submission_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.submit)
	router.Delete("", h.clearAll)
}

// RegisterAggregates attaches the history and stats read paths.
func (h *SubmissionHandler) RegisterAggregates(router fiber.Router) {
	router.Get("/history", h.history)
	router.Get("/stats", h.stats)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	var payload dto.SubmitCodeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Submit(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	switch {
	case result.Accepted:
		return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission accepted", result)
	case result.IsDuplicate:
		return utils.SendSuccess(c, "duplicate submission suppressed", result)
	default:
		return utils.SendSuccess(c, "submission reviewed but not stored", result)
	}
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	var questionID *string
	if id := c.Query("question_id"); id != "" {
		questionID = &id
	}

	submissions, err := h.service.List(c.UserContext(), questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "submissions retrieved", submissions)
}

func (h *SubmissionHandler) clearAll(c *fiber.Ctx) error {
	if err := h.service.ClearAll(c.UserContext()); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "all submissions cleared", nil)
}

func (h *SubmissionHandler) history(c *fiber.Ctx) error {
	author := c.Query("author")
	if author == "" {
		return utils.SendError(c, fiber.StatusBadRequest, "author is required")
	}

	var questionID *string
	if id := c.Query("question_id"); id != "" {
		questionID = &id
	}

	groups, err := h.service.History(c.UserContext(), author, questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "history retrieved", groups)
}

func (h *SubmissionHandler) stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "stats retrieved", stats)
}

func (h *SubmissionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrAuthorRequired):
		return utils.SendError(c, fiber.StatusBadRequest, "author name is required")
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		h.logger.Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
