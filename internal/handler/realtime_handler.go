package handler

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/codeshare-labs/codeshare-api/internal/middleware"
	"github.com/codeshare-labs/codeshare-api/internal/service"
)

// RealtimeHandler wires the realtime websocket endpoint. Clients connecting
// with a name are presence-tracked authors; nameless clients are observers.
type RealtimeHandler struct {
	service service.RealtimeService
	logger  zerolog.Logger
}

// NewRealtimeHandler creates a realtime handler instance.
func NewRealtimeHandler(service service.RealtimeService, logger zerolog.Logger) *RealtimeHandler {
	return &RealtimeHandler{
		service: service,
		logger:  logger.With().Str("component", "realtime_handler").Logger(),
	}
}

// Register binds the websocket upgrade under the provided router group.
func (h *RealtimeHandler) Register(router fiber.Router) {
	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			ctx := c.UserContext()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
			c.Locals("request_ctx", ctx)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/ws", websocket.New(h.handleConnection))
}

func (h *RealtimeHandler) handleConnection(conn *websocket.Conn) {
	connectionID := uuid.NewString()
	authorName := strings.TrimSpace(conn.Query("name"))
	baseCtx, _ := conn.Locals("request_ctx").(context.Context)

	opts := service.RealtimeConnectionOptions{
		ConnectionID: connectionID,
		AuthorName:   authorName,
		Context:      baseCtx,
	}

	h.logger.Info().Str("connection_id", connectionID).Str("author", authorName).Msg("realtime client connected")
	h.service.ServeConnection(conn, opts)
	h.logger.Info().Str("connection_id", connectionID).Str("author", authorName).Msg("realtime client disconnected")
}
