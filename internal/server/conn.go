package server

import (
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"rusteroids/internal/protocol"
	"rusteroids/internal/world"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	// snapshots supersede each other, so only a couple are worth queueing
	fastQueueLen       = 2
	guaranteedQueueLen = 256
)

// Conn is one client WebSocket. Reliability is emulated with two outbound
// queues: fast frames are dropped under backpressure, guaranteed frames
// are never dropped and an overflow closes the connection instead.
type Conn struct {
	hub     *Hub
	game    *Game
	ws      *websocket.Conn
	ip      string
	name    string // forced by a connect token, empty otherwise
	limiter *rate.Limiter
	id      world.ClientID

	fast       chan []byte
	guaranteed chan []byte
	kick       chan struct{}
	done       chan struct{}
	flushed    chan struct{}
	kickOnce   sync.Once
	closeOnce  sync.Once
	kicked     atomic.Bool
	dropped    atomic.Int64
}

// NewConn wraps an upgraded socket. The hub slot for ip must already be held.
func NewConn(hub *Hub, game *Game, ws *websocket.Conn, ip, name string, limiter *rate.Limiter) *Conn {
	return &Conn{
		hub:        hub,
		game:       game,
		ws:         ws,
		ip:         ip,
		name:       protocol.TruncateUTF8(name, protocol.MaxNameLen),
		limiter:    limiter,
		fast:       make(chan []byte, fastQueueLen),
		guaranteed: make(chan []byte, guaranteedQueueLen),
		kick:       make(chan struct{}),
		done:       make(chan struct{}),
		flushed:    make(chan struct{}),
	}
}

// Send queues a frame without blocking
func (c *Conn) Send(ch protocol.Channel, frame []byte) {
	if ch == protocol.Guaranteed {
		select {
		case c.guaranteed <- frame:
		default:
			log.Printf("warning: guaranteed queue overflow for %s, closing", c.ip)
			c.close()
		}
		return
	}
	for {
		select {
		case c.fast <- frame:
			return
		default:
		}
		// newest snapshot wins
		select {
		case <-c.fast:
			c.dropped.Add(1)
		default:
		}
	}
}

// Kick queues a Kick message and closes the connection once it is written
func (c *Conn) Kick(reason string) {
	c.kickOnce.Do(func() {
		frame, err := protocol.EncodeFrame(protocol.Guaranteed, &protocol.Kick{Reason: reason})
		if err == nil {
			select {
			case c.guaranteed <- frame:
			default:
			}
		}
		c.kicked.Store(true)
		close(c.kick)
	})
}

// Dropped reports how many fast frames were superseded before being written
func (c *Conn) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// ReadPump reads the handshake blob, then frames, and posts them to the game
func (c *Conn) ReadPump() {
	defer func() {
		if c.id != 0 {
			c.game.Disconnect(c.id)
		}
		c.hub.Release(c.ip)
		if c.kicked.Load() {
			select {
			case <-c.flushed:
			case <-time.After(writeWait):
			}
		}
		c.close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	_, blob, err := c.ws.ReadMessage()
	if err != nil {
		return
	}
	data, err := protocol.DecodeUserData(blob)
	if err != nil {
		log.Printf("warning: handshake from %s: %v", c.ip, err)
		return
	}
	if c.name != "" {
		data.Name = c.name
	}
	c.id = c.game.Connect(c, data)

	for {
		msgType, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.game.Kick(c, c.id, kickRateLimit)
			return
		}
		if msgType != websocket.BinaryMessage {
			log.Printf("warning: client %d sent a text frame, dropped", c.id)
			continue
		}
		_, m, err := protocol.DecodeFrame(raw)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownTag) {
				log.Printf("warning: client %d: %v", c.id, err)
			} else {
				log.Printf("warning: client %d sent a bad frame: %v", c.id, err)
			}
			continue
		}
		if r, ok := m.(*protocol.Registration); ok && c.name != "" {
			r.Data.Name = c.name
		}
		c.game.Post(c.id, m)
	}
}

// WritePump writes queued frames, guaranteed ones first, and pings
func (c *Conn) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.flushed)
		c.close()
	}()

	for {
		if !c.flushGuaranteed() {
			return
		}
		select {
		case frame := <-c.guaranteed:
			if !c.write(frame) {
				return
			}
		case frame := <-c.fast:
			if !c.write(frame) {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.kick:
			c.flushGuaranteed()
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, ""))
			return
		case <-c.done:
			return
		}
	}
}

// flushGuaranteed writes every queued guaranteed frame
func (c *Conn) flushGuaranteed() bool {
	for {
		select {
		case frame := <-c.guaranteed:
			if !c.write(frame) {
				return false
			}
		default:
			return true
		}
	}
}

func (c *Conn) write(frame []byte) bool {
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.BinaryMessage, frame) == nil
}
