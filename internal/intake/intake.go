// Package intake receives contact form submissions and hands them to a Sink.
package intake

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/akave-ai/consultlog/internal/model"
	"github.com/akave-ai/consultlog/internal/response"
)

// ErrValidation is returned when a required field is missing.
var ErrValidation = errors.New("missing required fields")

// Reasons shown by the contact form script.
const (
	errMissingFields = "Missing required fields"
	errSaveFailed    = "Failed to save submission"
)

// Sink persists accepted submissions. *store.Store implements it.
type Sink interface {
	Append(ctx context.Context, sub model.Submission) error
}

// Handler is the POST endpoint behind the contact form.
type Handler struct {
	sink     Sink
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

func NewHandler(sink Sink, logger zerolog.Logger) *Handler {
	return &Handler{
		sink:     sink,
		validate: validator.New(),
		logger:   logger.With().Str("component", "intake").Logger(),
		now:      time.Now,
	}
}

// WithClock replaces the receipt-time clock.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

// Accept stamps, defaults and validates sub, then appends it to the sink.
// Validation failures wrap ErrValidation and leave the sink untouched.
func (h *Handler) Accept(ctx context.Context, sub model.Submission) (model.Submission, error) {
	if err := h.validate.Struct(sub); err != nil {
		return sub, errors.Join(ErrValidation, err)
	}
	sub.Stamp(h.now())
	if err := h.sink.Append(ctx, sub); err != nil {
		return sub, err
	}
	return sub, nil
}

// Submit handles POST /api/contact with a JSON or urlencoded body.
func (h *Handler) Submit(c echo.Context) error {
	var sub model.Submission
	if err := c.Bind(&sub); err != nil {
		return response.BadRequest(c, "invalid request body", errMissingFields)
	}

	saved, err := h.Accept(c.Request().Context(), sub)
	switch {
	case errors.Is(err, ErrValidation):
		h.logger.Debug().Err(err).Msg("rejected submission")
		return response.BadRequest(c, "", errMissingFields)
	case err != nil:
		h.logger.Error().Err(err).Msg("store submission")
		return response.InternalError(c, "", errSaveFailed)
	}

	h.logger.Info().
		Str("source", saved.Source).
		Str("timestamp", saved.Timestamp).
		Msg("submission stored")
	return c.JSON(http.StatusOK, response.APIResponse{Ok: true, Status: http.StatusOK, Path: c.Request().URL.Path})
}
