package client

import (
	"context"
	"errors"
	"log"
	"time"

	"rusteroids/internal/protocol"
	"rusteroids/internal/world"
)

const inboxLen = 256

// Pilot produces the controls to send this tick
type Pilot func(r *Replica, now time.Duration) world.Controls

// Client ties a connection to a replica and drives both at a fixed rate
type Client struct {
	conn    *Conn
	Replica *Replica
	Pilot   Pilot         // nil sends no inputs
	Chat    <-chan string // lines to send, may be nil
	Tick    time.Duration
	// OnTick runs on the loop goroutine after each tick, if set
	OnTick func(r *Replica)
}

func New(conn *Conn, tick time.Duration) *Client {
	return &Client{conn: conn, Replica: NewReplica(), Tick: tick}
}

// Run reads server messages in the background and applies them once per
// tick. It returns when ctx ends, the connection drops or we are kicked;
// the replica is back in the menu state by then.
func (c *Client) Run(ctx context.Context) error {
	inbox := make(chan protocol.Message, inboxLen)
	readErr := make(chan error, 1)
	stop := make(chan struct{})
	defer close(stop)
	go c.readLoop(inbox, readErr, stop)

	ticker := time.NewTicker(c.Tick)
	defer ticker.Stop()
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			c.conn.Close()
			c.Replica.Teardown()
			return ctx.Err()
		case err := <-readErr:
			// apply what made it in before the drop, a Kick among it
			if kerr := c.drain(inbox); kerr != nil {
				err = kerr
			}
			c.conn.Close()
			c.Replica.Teardown()
			return err
		case line := <-c.Chat:
			if err := c.conn.Send(protocol.Guaranteed, &protocol.ChatMessage{Text: line}); err != nil {
				log.Printf("warning: chat not sent: %v", err)
			}
		case <-ticker.C:
			if err := c.drain(inbox); err != nil {
				c.conn.Close()
				return err
			}
			if c.Pilot != nil && c.Replica.State() == StateInGame {
				in := protocol.InputsFrom(c.Pilot(c.Replica, time.Since(start)))
				if err := c.conn.Send(protocol.Fast, in); err != nil {
					log.Printf("warning: inputs not sent: %v", err)
				}
			}
			if c.OnTick != nil {
				c.OnTick(c.Replica)
			}
		}
	}
}

// drain applies what arrived since the last tick
func (c *Client) drain(inbox <-chan protocol.Message) error {
	for n := len(inbox); n > 0; n-- {
		if err := c.Replica.Apply(<-inbox); err != nil {
			c.Replica.Teardown()
			return err
		}
	}
	return nil
}

func (c *Client) readLoop(inbox chan<- protocol.Message, readErr chan<- error, stop <-chan struct{}) {
	for {
		m, err := c.conn.Receive()
		if errors.Is(err, protocol.ErrUnknownTag) || errors.Is(err, protocol.ErrMalformed) {
			log.Printf("warning: %v", err)
			continue
		}
		if err != nil {
			readErr <- err
			return
		}
		select {
		case inbox <- m:
		case <-stop:
			return
		}
	}
}
