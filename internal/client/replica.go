// Package client connects to a server and keeps a local replica of its
// world, including the puppets needed to draw across the map seams.
package client

import (
	"errors"
	"fmt"
	"log"

	"rusteroids/internal/chunk"
	"rusteroids/internal/protocol"
	"rusteroids/internal/world"
)

var (
	ErrKicked          = errors.New("client: kicked by server")
	ErrVersionMismatch = errors.New("client: protocol version mismatch")
	ErrBadState        = errors.New("client: unusable state from server")
)

// State of the replica
type State uint8

const (
	StateMenu State = iota
	StateInGame
)

func (s State) String() string {
	if s == StateInGame {
		return "in_game"
	}
	return "menu"
}

// ChatLine is one received chat message
type ChatLine struct {
	From world.ClientID
	Name string
	Text string
}

// Stats summarises the replica for logging
type Stats struct {
	Objects int
	Puppets int
	Clients int
	Tick    uint64
}

// Replica is a client's copy of the server world. It is driven from one
// goroutine.
type Replica struct {
	state    State
	cfg      chunk.GlobalConfig
	Store    *world.Store
	Clients  *world.ClientsData
	Loaded   *chunk.Interest
	serverID world.ClientID // our id as the server knows it
	ship     world.ObjectID
	motd     string
	tick     uint64
	Chat     []ChatLine
}

func NewReplica() *Replica {
	return &Replica{
		Store:   world.NewStore(),
		Clients: world.NewClientsData(),
	}
}

func (r *Replica) State() State               { return r.state }
func (r *Replica) Config() chunk.GlobalConfig { return r.cfg }
func (r *Replica) Motd() string               { return r.motd }

// ServerID is the id the server assigned us; locally we are SelfClientID
func (r *Replica) ServerID() world.ClientID { return r.serverID }

// Ship returns our own ship once it has been replicated
func (r *Replica) Ship() (*world.Entity, bool) {
	if r.ship == world.InvalidObjectID {
		return nil, false
	}
	return r.Store.Get(r.ship)
}

func (r *Replica) Stats() Stats {
	return Stats{
		Objects: r.Store.Len(),
		Puppets: r.Store.PuppetCount(),
		Clients: r.Clients.Len(),
		Tick:    r.tick,
	}
}

// Apply folds one server message into the replica. Kick tears the replica
// down and returns an error wrapping ErrKicked.
func (r *Replica) Apply(m protocol.Message) error {
	switch m := m.(type) {
	case *protocol.Greeting:
		if m.Version != protocol.Version {
			return fmt.Errorf("%w: server %d, client %d", ErrVersionMismatch, m.Version, protocol.Version)
		}
		r.motd = m.Motd
		return nil
	case *protocol.OnConnect:
		if err := m.Config.Validate(); err != nil {
			log.Printf("warning: on_connect with a bad map: %v", err)
			r.Teardown()
			return fmt.Errorf("%w: %v", ErrBadState, err)
		}
		r.onConnect(m)
		return nil
	case *protocol.Kick:
		log.Printf("kicked: %s", m.Reason)
		r.Teardown()
		return fmt.Errorf("%w: %s", ErrKicked, m.Reason)
	}

	if r.state != StateInGame {
		log.Printf("warning: %s before on_connect, dropped", m.Tag())
		return nil
	}
	switch m := m.(type) {
	case *protocol.Update:
		r.update(m)
	case *protocol.NewConnection:
		r.Clients.Set(world.ClientEntry{ClientID: r.local(m.ClientID), ObjectID: m.Ship, Data: m.Data})
	case *protocol.Registration:
		id := r.local(m.ClientID)
		if !r.Clients.UpdateData(id, m.Data) {
			log.Printf("warning: registration for unknown client %d, dropped", m.ClientID)
			return nil
		}
		entry, _ := r.Clients.ByClient(id)
		if e, ok := r.Store.Get(entry.ObjectID); ok && e.Kind() == world.KindShip {
			world.Restyle(e, m.Data)
		}
	case *protocol.Disconnection:
		if _, ok := r.Clients.Remove(r.local(m.ClientID)); !ok {
			log.Printf("warning: disconnection of unknown client %d", m.ClientID)
		}
	case *protocol.ChatMessage:
		line := ChatLine{From: m.ClientID, Text: m.Text}
		if entry, ok := r.Clients.ByClient(r.local(m.ClientID)); ok {
			line.Name = entry.Data.Name
		}
		r.Chat = append(r.Chat, line)
		log.Printf("[chat] %s: %s", line.Name, line.Text)
	default:
		log.Printf("warning: unexpected %s from server, dropped", m.Tag())
	}
	return nil
}

// onConnect replaces everything we know with the server's view
func (r *Replica) onConnect(m *protocol.OnConnect) {
	r.Store.Clear()
	r.serverID = m.ClientID
	r.ship = m.Ship
	r.cfg = m.Config
	r.tick = 0
	entries := make([]world.ClientEntry, 0, len(m.Clients))
	for _, e := range m.Clients {
		e.ClientID = r.local(e.ClientID)
		entries = append(entries, e)
	}
	r.Clients.Reset(entries)
	r.Loaded = chunk.Ring(r.cfg, 1)
	r.state = StateInGame
}

// update upserts every object, despawns the ones the server no longer
// sends, then rebuilds puppets
func (r *Replica) update(m *protocol.Update) {
	seen := make(map[world.ObjectID]struct{}, len(m.Objects))
	for _, od := range m.Objects {
		if !od.Object.Type.Valid() {
			log.Printf("warning: object %d without a %s payload, dropped", od.Object.ID, od.Object.Type.Kind)
			continue
		}
		seen[od.Object.ID] = struct{}{}
		e, ok := r.Store.Get(od.Object.ID)
		if !ok || e.Kind() != od.Object.Type.Kind {
			look, _ := world.DeriveLook(od.Object, r.Clients)
			r.Store.Insert(&world.Entity{Object: od.Object, Transform: od.Transform, Velocity: od.Velocity, Look: look})
			continue
		}
		e.Object = od.Object
		e.Transform = od.Transform
		e.Velocity = od.Velocity
		if e.Kind() == world.KindShip {
			// cosmetics and hp both feed the look
			if look, ok := world.DeriveLook(e.Object, r.Clients); ok {
				e.Look = look
			}
		}
	}
	for _, id := range r.Store.IDs() {
		if _, ok := seen[id]; !ok {
			r.Store.Remove(id)
		}
	}
	r.tick = m.Tick
	world.Reconcile(r.cfg, r.Loaded, r.Store, r.Clients)
}

// Teardown drops every entity, puppet, client and the config in one pass
// and returns to the menu
func (r *Replica) Teardown() {
	r.Store.Clear()
	r.Clients.Reset(nil)
	r.Loaded = nil
	r.cfg = chunk.GlobalConfig{}
	r.serverID = 0
	r.ship = world.InvalidObjectID
	r.tick = 0
	r.state = StateMenu
}

func (r *Replica) local(id world.ClientID) world.ClientID {
	if id == r.serverID {
		return world.SelfClientID
	}
	return id
}
