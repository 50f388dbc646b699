package voice

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const controlWriteTimeout = 5 * time.Second

// controlConn is the voice websocket. gorilla allows one concurrent
// writer, so writes are serialized; reads happen on the read loop only.
type controlConn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	closed  atomic.Bool
}

func newControlConn(ws *websocket.Conn) *controlConn {
	return &controlConn{ws: ws}
}

func (c *controlConn) Open() bool {
	return !c.closed.Load()
}

// Send writes one opcode with its payload.
func (c *controlConn) Send(op Opcode, d any) error {
	if c.closed.Load() {
		return ErrNotConnected
	}
	payload, err := json.Marshal(outboundEvent{Op: op, D: d})
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", op, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(controlWriteTimeout)); err != nil {
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("failed to send %s: %w", op, err)
	}
	return nil
}

// Receive blocks for the next message. Any error means the connection
// is gone.
func (c *controlConn) Receive() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

// Close sends a normal close frame and closes the socket. Only the first
// call does anything.
func (c *controlConn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return c.ws.Close()
}
