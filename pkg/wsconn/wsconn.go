// Package wsconn wraps a websocket connection with write
// serialization. gorilla/websocket allows one concurrent writer per
// connection: room broadcasts from different members' handlers and
// out-of-band state requests can target the same member, so every
// JSON write goes through the connection's mutex.
package wsconn

import (
	"sync"

	"github.com/gorilla/websocket"
)

type Conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func New(ws *websocket.Conn) *Conn {
	return &Conn{ws: ws}
}

func (c *Conn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.ws.WriteJSON(v)
}

// ReadJSON is not serialized: a connection has a single reader, the
// message loop that owns it.
func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

func (c *Conn) Close() error {
	return c.ws.Close()
}
