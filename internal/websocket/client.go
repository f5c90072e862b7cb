package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ruuig/tienda-online-sub002/internal/dto"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/logger"
	"github.com/ruuig/tienda-online-sub002/internal/pkg/serverutils"
	"github.com/ruuig/tienda-online-sub002/pkg/rag"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// AnswerStreamer produces the token stream for one question.
type AnswerStreamer interface {
	StreamAnswer(ctx context.Context, request *dto.StreamAnswerRequest) (<-chan rag.Token, error)
}

// Client streams knowledge-base answers over one websocket connection. Each
// text frame from the peer is a question; the reply is a sequence of token
// frames closed by a done (or error) frame. Questions are answered one at a
// time in arrival order.
type Client struct {
	Conn     *websocket.Conn
	VendorID uuid.UUID

	streamer AnswerStreamer
	logger   logger.ILogger
	requests chan dto.StreamAnswerRequest
}

func NewClient(conn *websocket.Conn, vendorID uuid.UUID, streamer AnswerStreamer, log logger.ILogger) *Client {
	return &Client{
		Conn:     conn,
		VendorID: vendorID,
		streamer: streamer,
		logger:   log,
		requests: make(chan dto.StreamAnswerRequest, 8),
	}
}

// readPump reads questions until the peer goes away, then cancels the
// connection context so an answer in flight stops generating.
func (c *Client) readPump(cancel context.CancelFunc) {
	defer func() {
		cancel()
		close(c.requests)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("WEBSOCKET", "Unexpected close", map[string]interface{}{
					"vendor_id": c.VendorID.String(),
					"error":     err.Error(),
				})
			}
			return
		}

		var req dto.StreamAnswerRequest
		if err := json.Unmarshal(data, &req); err != nil {
			req = dto.StreamAnswerRequest{Question: string(data)}
		}
		req.VendorId = c.VendorID

		select {
		case c.requests <- req:
		default:
			c.logger.Warn("WEBSOCKET", "Question queue full, dropping question", map[string]interface{}{
				"vendor_id": c.VendorID.String(),
			})
		}
	}
}

// writePump answers queued questions and keeps the connection alive with pings.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case req, ok := <-c.requests:
			if !ok {
				return
			}
			if err := c.answer(ctx, &req); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// answer streams one reply. A returned error means the connection is unusable.
func (c *Client) answer(ctx context.Context, req *dto.StreamAnswerRequest) error {
	if err := serverutils.ValidateRequest(req); err != nil {
		return c.send(dto.StreamEvent{Type: "error", Content: serverutils.MessageOf(err)})
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tokens, err := c.streamer.StreamAnswer(ctx, req)
	if err != nil {
		return c.send(dto.StreamEvent{Type: "error", Content: serverutils.MessageOf(err)})
	}

	for tok := range tokens {
		event := dto.StreamEvent{Type: "token", Content: tok.Text}
		if tok.Fallback {
			event = dto.StreamEvent{Type: "fallback", Content: tok.Text, Fallback: true}
		}
		if err := c.send(event); err != nil {
			cancel()
			for range tokens {
			}
			return err
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return c.send(dto.StreamEvent{Type: "done"})
}

func (c *Client) send(event dto.StreamEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}
