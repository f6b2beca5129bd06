package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ClientConn serializes writes to one websocket. gorilla allows a single
// concurrent writer and the coordinator fans out from event goroutines.
type ClientConn struct {
	rawConn *websocket.Conn
	mu      sync.Mutex
}

func (c *ClientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data) // Text/Binary/Ping only
}

func (c *ClientConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteJSON(v)
}

func (c *ClientConn) ping() error {
	return c.write(websocket.PingMessage, nil)
}

func (c *ClientConn) Close() error {
	return c.rawConn.Close()
}
