package wsbridge

import (
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// wsClient wraps one attached frontend's websocket connection, mirroring
// the socketClient: a UUID identity plus a thin Read/Send
// surface over the underlying *websocket.Conn.
type wsClient struct {
	id  uuid.UUID
	conn *websocket.Conn
}

func (c *wsClient) send(f Frame) error {
	return c.conn.WriteJSON(f)
}

// readLoop blocks decoding inbound frames (replies from this client) onto
// receiveCh until the connection errors or closes, at which point the
// caller is responsible for deregistering the client - mirrors socketClient.Read contract exactly.
func (c *wsClient) readLoop(receiveCh chan<- Frame) error {
	for {
		var f Frame
		if err := c.conn.ReadJSON(&f); err != nil {
			return err
		}
		receiveCh <- f
	}
}

func (c *wsClient) close() {
	_ = c.conn.Close()
}
