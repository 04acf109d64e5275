package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/wabridge/wabridge/internal/dispatch"
)

const maxBodyBytes int64 = 1 << 20 // 1 MiB

// eventDispatcher drives a classified event through the pipeline.
type eventDispatcher interface {
	Handle(ctx context.Context, event dispatch.InboundEvent) (dispatch.OutboundReply, error)
}

// transcriptResetter drops all conversation state.
type transcriptResetter interface {
	ResetAll()
	Len() int
}

// Handler exposes the platform webhook, the reset trigger, and the
// greeting route.
type Handler struct {
	logger      *slog.Logger
	verifyToken string
	dispatcher  eventDispatcher
	store       transcriptResetter
}

// NewHandler creates the webhook HTTP handler.
func NewHandler(log *slog.Logger, verifyToken string, dispatcher eventDispatcher, store transcriptResetter) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		logger:      log.With(slog.String("handler", "webhook")),
		verifyToken: verifyToken,
		dispatcher:  dispatcher,
		store:       store,
	}
}

// Register registers the webhook routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.HandleHome)
	e.GET("/webhook", h.HandleVerify)
	e.POST("/webhook", h.HandleEvent)
	e.GET("/reset", h.HandleReset)
}

// HandleHome answers the greeting route.
func (h *Handler) HandleHome(c echo.Context) error {
	return c.String(http.StatusOK, "WhatsApp OpenAI Webhook is listening!")
}

// HandleVerify answers the one-time subscription handshake: 200 with the
// raw challenge on match, 403 on token mismatch, 400 when mode or token
// is absent.
func (h *Handler) HandleVerify(c echo.Context) error {
	challenge, err := Verify(
		c.QueryParam("hub.mode"),
		c.QueryParam("hub.verify_token"),
		c.QueryParam("hub.challenge"),
		h.verifyToken,
	)
	switch {
	case err == nil:
		h.logger.Info("webhook verified")
		return c.String(http.StatusOK, challenge)
	case errors.Is(err, ErrMissingParameters):
		h.logger.Warn("verification request missing parameters")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Missing parameters",
		})
	default:
		h.logger.Warn("verification failed")
		return c.JSON(http.StatusForbidden, map[string]string{
			"status":  "error",
			"message": "Verification failed",
		})
	}
}

// HandleEvent classifies and dispatches one delivery. Recognized
// non-message deliveries are acknowledged with 200 so the platform does
// not retry them.
func (h *Handler) HandleEvent(c echo.Context) error {
	deliveryID := uuid.NewString()
	log := h.logger.With(slog.String("delivery_id", deliveryID))

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodyBytes))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body: "+err.Error())
	}

	event, err := Classify(body)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotAnEvent):
		log.Debug("ignoring non-message delivery")
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, ErrMalformedBody):
		log.Warn("rejected malformed body")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "Malformed request body",
		})
	case errors.Is(err, ErrNotAPlatformEvent):
		log.Warn("rejected non-platform body")
		return c.JSON(http.StatusNotFound, map[string]string{
			"status":  "error",
			"message": "Not a WhatsApp API event",
		})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
	}

	if _, err := h.dispatcher.Handle(c.Request().Context(), event); err != nil {
		log.Error("event handling failed",
			slog.String("sender", event.Sender),
			slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReset drops every sender's transcript.
func (h *Handler) HandleReset(c echo.Context) error {
	dropped := h.store.Len()
	h.store.ResetAll()
	h.logger.Info("transcripts reset", slog.Int("dropped", dropped))
	return c.String(http.StatusOK, "Message log resetted!")
}
