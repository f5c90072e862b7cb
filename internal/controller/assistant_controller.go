package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/serverutils"
	"github.com/ruuig/tienda-online-sub002/internal/service"
	internalWS "github.com/ruuig/tienda-online-sub002/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IAssistantController interface {
	RegisterRoutes(r fiber.Router)
	ProcessMessage(ctx *fiber.Ctx) error
	StreamAnswer(ctx *fiber.Ctx) error
}

type assistantController struct {
	assistant service.IAssistantService
	rag       service.IRagService
	jwtSecret string
	logger    logger.ILogger
}

func NewAssistantController(assistant service.IAssistantService, rag service.IRagService, jwtSecret string, log logger.ILogger) IAssistantController {
	return &assistantController{
		assistant: assistant,
		rag:       rag,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (c *assistantController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/assistant/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("/messages", c.ProcessMessage)
	h.Get("/stream", c.StreamAnswer)
	h.Get("/ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	}, websocket.New(c.serveWs))
}

func (c *assistantController) ProcessMessage(ctx *fiber.Ctx) error {
	var req dto.ProcessMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.VendorId = serverutils.VendorID(ctx)
	req.UserId = serverutils.UserID(ctx)

	res, err := c.assistant.ProcessMessage(ctx.UserContext(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

// StreamAnswer streams a knowledge-base answer as server-sent events. Errors
// raised before the first token are regular JSON errors; afterwards failures
// arrive as a fallback event.
func (c *assistantController) StreamAnswer(ctx *fiber.Ctx) error {
	var req dto.StreamAnswerRequest
	if err := ctx.QueryParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid query")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	req.VendorId = serverutils.VendorID(ctx)

	// The body writer runs after the handler returns, so the stream cannot
	// hang off the request context.
	streamCtx, cancel := context.WithCancel(context.Background())
	tokens, err := c.rag.StreamAnswer(streamCtx, &req)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	vendorId := req.VendorId
	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		sent := 0
		for tok := range tokens {
			event := dto.StreamEvent{Type: "token", Content: tok.Text}
			if tok.Fallback {
				event = dto.StreamEvent{Type: "fallback", Content: tok.Text, Fallback: true}
			}
			if err := writeEvent(w, event); err != nil {
				c.logger.Debug("ASSISTANT", "Client disconnected from stream", map[string]interface{}{
					"vendor_id": vendorId.String(),
					"tokens":    sent,
				})
				cancel()
				for range tokens {
				}
				return
			}
			sent++
		}
		_ = writeEvent(w, dto.StreamEvent{Type: "done"})
	})
	return nil
}

func (c *assistantController) serveWs(conn *websocket.Conn) {
	vendorId, _ := conn.Locals(serverutils.LocalVendorID).(uuid.UUID)
	internalWS.ServeAnswers(internalWS.NewClient(conn, vendorId, c.rag, c.logger))
}

func writeEvent(w *bufio.Writer, event dto.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}
