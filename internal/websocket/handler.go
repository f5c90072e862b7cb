package websocket

import "context"

// ServeAnswers runs the client until the peer disconnects. The reader runs in
// its own goroutine; all writes happen on the handler goroutine.
func ServeAnswers(client *Client) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go client.readPump(cancel)
	client.writePump(ctx)
}
