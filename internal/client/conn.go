package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"rusteroids/internal/protocol"
	"rusteroids/internal/world"
)

const writeWait = 10 * time.Second

// Conn is the client end of the WebSocket. Reads must come from one
// goroutine; writes may come from any.
type Conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

// Dial connects to url and sends the handshake blob. header carries the
// optional server password.
func Dial(ctx context.Context, url string, data world.ClientData, header http.Header) (*Conn, error) {
	ws, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (%s)", url, err, resp.Status)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Conn{ws: ws}
	if err := c.write(protocol.EncodeUserData(data)); err != nil {
		ws.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	return c, nil
}

// Send frames m on channel ch
func (c *Conn) Send(ch protocol.Channel, m protocol.Message) error {
	frame, err := protocol.EncodeFrame(ch, m)
	if err != nil {
		return err
	}
	return c.write(frame)
}

// Receive blocks for the next server message. Frames with an unknown tag
// return an error wrapping protocol.ErrUnknownTag; the connection is still
// usable afterwards.
func (c *Conn) Receive() (protocol.Message, error) {
	for {
		msgType, raw, err := c.ws.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		_, m, err := protocol.DecodeFrame(raw)
		return m, err
	}
}

// Close says goodbye and closes the socket
func (c *Conn) Close() error {
	c.mu.Lock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.mu.Unlock()
	return c.ws.Close()
}

func (c *Conn) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, b)
}
