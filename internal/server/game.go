package server

import (
	"fmt"
	"log"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"rusteroids/internal/config"
	"rusteroids/internal/journal"
	"rusteroids/internal/protocol"
	"rusteroids/internal/world"
)

const (
	inboxLen   = 4096
	maxChatLen = 256

	kickServerFull = "server is full"
	kickRateLimit  = "rate limit exceeded"
	kickShutdown   = "server shutting down"
)

// State is the administrative state of the server
type State uint32

const (
	StatePreInit State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePreInit:
		return "preinit"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// Peer is the game's view of a connection. Send must never block.
type Peer interface {
	Send(ch protocol.Channel, frame []byte)
	Kick(reason string)
}

type inboundKind uint8

const (
	inConnect inboundKind = iota
	inDisconnect
	inMessage
)

type inbound struct {
	kind inboundKind
	id   world.ClientID
	peer Peer
	data world.ClientData
	msg  protocol.Message
}

// Game owns the simulation. Connection pumps only post to its inbox; all
// world mutation happens on the tick goroutine.
type Game struct {
	cfg     config.Config
	sim     *world.Sim
	journal *journal.Journal
	inbox   chan inbound
	peers   map[world.ClientID]Peer
	tick    uint64

	state   atomic.Uint32
	nextID  atomic.Uint64
	players atomic.Int64

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewGame creates a game in PreInit. j may be nil.
func NewGame(cfg config.Config, j *journal.Journal, rng *rand.Rand) *Game {
	return &Game{
		cfg:     cfg,
		sim:     world.NewSim(cfg.Map, cfg.Gameplay, rng),
		journal: j,
		inbox:   make(chan inbound, inboxLen),
		peers:   make(map[world.ClientID]Peer),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (g *Game) State() State { return State(g.state.Load()) }

// Players returns the number of clients with a ship
func (g *Game) Players() int { return int(g.players.Load()) }

// Start moves the game to Running and starts ticking
func (g *Game) Start() {
	if !g.state.CompareAndSwap(uint32(StatePreInit), uint32(StateRunning)) {
		return
	}
	log.Printf("game running at %d Hz on a %v map", g.cfg.TickRate, g.cfg.Map.MapSizeChunks)
	go g.run()
}

// Stop ends the tick loop and kicks everyone still connected
func (g *Game) Stop() {
	g.stopOnce.Do(func() {
		wasRunning := g.State() == StateRunning
		close(g.stop)
		if wasRunning {
			<-g.done
		}
		g.state.Store(uint32(StateStopped))
	})
}

func (g *Game) run() {
	defer close(g.done)
	ticker := time.NewTicker(g.cfg.TickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.step()
		case <-g.stop:
			for _, p := range g.peers {
				p.Kick(kickShutdown)
			}
			return
		}
	}
}

// Connect registers a handshaken peer and returns the id it will play as.
// The ship is created on the next tick.
func (g *Game) Connect(p Peer, data world.ClientData) world.ClientID {
	id := world.ClientID(g.nextID.Add(1))
	g.post(inbound{kind: inConnect, id: id, peer: p, data: data})
	return id
}

// Disconnect removes a client. Unknown ids are ignored.
func (g *Game) Disconnect(id world.ClientID) {
	g.post(inbound{kind: inDisconnect, id: id})
}

// Post hands a decoded message from client id to the game
func (g *Game) Post(id world.ClientID, m protocol.Message) {
	g.post(inbound{kind: inMessage, id: id, msg: m})
}

func (g *Game) post(in inbound) {
	select {
	case g.inbox <- in:
	case <-g.stop:
	}
}

// step runs one tick. Ticks outside Running do nothing.
func (g *Game) step() {
	if g.State() != StateRunning {
		return
	}
	g.drain()
	g.sim.Step(1 / float64(g.cfg.TickRate))
	g.record(g.sim.Events())
	g.sim.Reconcile()
	g.tick++
	g.broadcastUpdate()
}

// drain handles what arrived since the last tick and nothing more
func (g *Game) drain() {
	for n := len(g.inbox); n > 0; n-- {
		in := <-g.inbox
		switch in.kind {
		case inConnect:
			g.connect(in)
		case inDisconnect:
			g.disconnect(in.id)
		case inMessage:
			g.handle(in.id, in.msg)
		}
	}
}

func (g *Game) connect(in inbound) {
	if len(g.peers) >= g.cfg.MaxClients {
		log.Printf("client %d refused: %s", in.id, kickServerFull)
		g.journal.Record(journal.KindRejected, in.id, kickServerFull)
		in.peer.Kick(kickServerFull)
		return
	}
	ship := g.sim.SpawnShip(in.id, in.data)
	g.peers[in.id] = in.peer
	g.players.Add(1)

	g.send(in.peer, protocol.Guaranteed, &protocol.Greeting{Version: protocol.Version, Motd: g.cfg.Motd})
	g.send(in.peer, protocol.Guaranteed, &protocol.OnConnect{
		ClientID: in.id,
		Clients:  g.sim.Clients.Entries(),
		Config:   g.sim.Config(),
		Ship:     ship.Object.ID,
	})
	g.broadcast(protocol.Guaranteed, &protocol.NewConnection{ClientID: in.id, Ship: ship.Object.ID, Data: in.data}, in.id)

	log.Printf("client %d (%q) connected, ship %d at %v", in.id, in.data.Name, ship.Object.ID, ship.Transform.Translation)
	g.journal.Record(journal.KindConnect, in.id, in.data.Name)
}

func (g *Game) disconnect(id world.ClientID) {
	if _, ok := g.peers[id]; !ok {
		return
	}
	delete(g.peers, id)
	g.players.Add(-1)
	if _, ok := g.sim.RemoveClient(id); !ok {
		log.Printf("warning: client %d had no clients entry on disconnect", id)
	}
	g.broadcast(protocol.Guaranteed, &protocol.Disconnection{ClientID: id}, 0)

	log.Printf("client %d disconnected", id)
	g.journal.Record(journal.KindDisconnect, id, "")
}

func (g *Game) handle(id world.ClientID, m protocol.Message) {
	if _, ok := g.peers[id]; !ok {
		// messages can trail a refused or finished connection
		return
	}
	switch m := m.(type) {
	case *protocol.Inputs:
		if !g.sim.ApplyInputs(id, m.Controls()) {
			log.Printf("warning: inputs from client %d dropped", id)
		}
	case *protocol.ChatMessage:
		text := cleanChat(m.Text)
		if text == "" {
			return
		}
		g.broadcast(protocol.Guaranteed, &protocol.ChatMessage{ClientID: id, Text: text}, 0)
		g.journal.Record(journal.KindChat, id, text)
	case *protocol.Registration:
		if !g.sim.Restyle(id, m.Data) {
			log.Printf("warning: registration from unknown client %d, dropped", id)
			return
		}
		g.broadcast(protocol.Guaranteed, &protocol.Registration{ClientID: id, Data: m.Data}, 0)
		g.journal.Record(journal.KindRestyle, id, m.Data.Name)
	default:
		log.Printf("warning: client %d sent %s, dropped", id, m.Tag())
	}
}

// Kick drops a client with a reason. Safe from any goroutine.
func (g *Game) Kick(p Peer, id world.ClientID, reason string) {
	log.Printf("kicking client %d: %s", id, reason)
	g.journal.Record(journal.KindKick, id, reason)
	p.Kick(reason)
}

func (g *Game) record(events []world.Event) {
	for _, ev := range events {
		if ev.Kind != world.EventShipDestroyed {
			continue
		}
		victim, ok := g.sim.Clients.ByObject(ev.Object)
		if !ok {
			continue
		}
		detail := "asteroid"
		if killer, ok := g.sim.Clients.ByObject(ev.By); ok {
			detail = killer.Data.Name
		}
		g.journal.Record(journal.KindKill, victim.ClientID, detail)
	}
}

func (g *Game) broadcastUpdate() {
	if len(g.peers) == 0 {
		return
	}
	objs := g.sim.Store.Objects()
	u := &protocol.Update{Tick: g.tick, Objects: make([]protocol.ObjectData, 0, len(objs))}
	for _, e := range objs {
		u.Objects = append(u.Objects, protocol.SnapshotOf(e))
	}
	g.broadcast(protocol.Fast, u, 0)
}

// broadcast sends m to every peer except skip
func (g *Game) broadcast(ch protocol.Channel, m protocol.Message, skip world.ClientID) {
	frame, err := protocol.EncodeFrame(ch, m)
	if err != nil {
		log.Printf("warning: encode %s: %v", m.Tag(), err)
		return
	}
	for id, p := range g.peers {
		if id != skip {
			p.Send(ch, frame)
		}
	}
}

func (g *Game) send(p Peer, ch protocol.Channel, m protocol.Message) {
	frame, err := protocol.EncodeFrame(ch, m)
	if err != nil {
		log.Printf("warning: encode %s: %v", m.Tag(), err)
		return
	}
	p.Send(ch, frame)
}

func cleanChat(s string) string {
	s = strings.TrimSpace(strings.ToValidUTF8(s, ""))
	if len(s) > maxChatLen {
		s = protocol.TruncateUTF8(s, maxChatLen)
	}
	return s
}
