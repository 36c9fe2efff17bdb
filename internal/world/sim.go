package world

import (
	"log"
	"math"
	"math/rand/v2"

	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
)

// Tuning holds the gameplay knobs that come from configuration
type Tuning struct {
	AsteroidTarget   int     `yaml:"asteroid_target"`
	PickupDropChance float64 `yaml:"pickup_drop_chance"`
	MaxSpawnsPerTick int     `yaml:"max_spawns_per_tick"`
	InputDt          float64 `yaml:"-"` // impulse length of one Inputs message
}

func DefaultTuning() Tuning {
	return Tuning{
		AsteroidTarget:   40,
		PickupDropChance: 0.15,
		MaxSpawnsPerTick: 4,
		InputDt:          1.0 / 60.0,
	}
}

// EventKind classifies notable things that happened during a Step
type EventKind uint8

const (
	EventAsteroidDestroyed EventKind = iota
	EventShipDestroyed
	EventPickupCollected
)

func (k EventKind) String() string {
	switch k {
	case EventAsteroidDestroyed:
		return "asteroid_destroyed"
	case EventShipDestroyed:
		return "ship_destroyed"
	case EventPickupCollected:
		return "pickup_collected"
	}
	return "unknown"
}

// Event is one gameplay outcome. By is the object responsible, when known.
type Event struct {
	Kind   EventKind
	Object ObjectID
	By     ObjectID
}

// Sim owns the authoritative world and advances it. It is not safe for
// concurrent use; the server drives it from the game loop goroutine.
type Sim struct {
	cfg     chunk.GlobalConfig
	tuning  Tuning
	rng     *rand.Rand
	Store   *Store
	Clients *ClientsData
	Loaded  *chunk.Interest

	now          float64
	controls     map[ObjectID]Controls
	fireCD       map[ObjectID]float64
	hitCD        map[ObjectID]float64
	pickupExpiry map[ObjectID]float64
	space        *physics.Space
	events       []Event
}

// NewSim creates an empty world. The loaded set covers the whole map plus a
// one-chunk shadow ring, so every seam has puppets.
func NewSim(cfg chunk.GlobalConfig, tuning Tuning, rng *rand.Rand) *Sim {
	if tuning.InputDt <= 0 {
		tuning.InputDt = DefaultTuning().InputDt
	}
	margin := cfg.SingleChunkSize
	return &Sim{
		cfg:          cfg,
		tuning:       tuning,
		rng:          rng,
		Store:        NewStore(),
		Clients:      NewClientsData(),
		Loaded:       chunk.Ring(cfg, 1),
		controls:     make(map[ObjectID]Controls),
		fireCD:       make(map[ObjectID]float64),
		hitCD:        make(map[ObjectID]float64),
		pickupExpiry: make(map[ObjectID]float64),
		space:        physics.NewSpace(margin.Scale(-1), cfg.WorldSize().Add(margin), 100),
	}
}

func (s *Sim) Config() chunk.GlobalConfig { return s.cfg }

// Now returns simulated seconds since the world started
func (s *Sim) Now() float64 { return s.now }

// Events returns what happened during the last Step
func (s *Sim) Events() []Event { return s.events }

// SpawnShip places a new ship for a client using the placement heuristic
// and binds it in the clients table
func (s *Sim) SpawnShip(id ClientID, data ClientData) *Entity {
	pos, _ := SpawnPosition(CensusOf(s.cfg, s.Store), s.rng)
	ship := NewShip(data, pos)
	s.Store.Insert(ship)
	s.Clients.Set(ClientEntry{ClientID: id, ObjectID: ship.Object.ID, Data: data})
	return ship
}

// RemoveClient drops a client and its ship
func (s *Sim) RemoveClient(id ClientID) (ClientEntry, bool) {
	entry, ok := s.Clients.Remove(id)
	if !ok {
		return entry, false
	}
	s.forget(entry.ObjectID)
	return entry, true
}

// Restyle changes a client's cosmetics and dresses its ship to match
func (s *Sim) Restyle(id ClientID, data ClientData) bool {
	if !s.Clients.UpdateData(id, data) {
		return false
	}
	entry, _ := s.Clients.ByClient(id)
	if ship, ok := s.Store.Get(entry.ObjectID); ok && ship.Kind() == KindShip {
		Restyle(ship, data)
	}
	return true
}

// ApplyInputs adds the impulse of one input sample to the client's ship
// right away and remembers the sample for steering and firing. Samples
// with a non-finite rotation target are dropped.
func (s *Sim) ApplyInputs(id ClientID, c Controls) bool {
	if math.IsNaN(c.RotationTarget) || math.IsInf(c.RotationTarget, 0) {
		log.Printf("warning: client %d sent rotation target %v, dropped", id, c.RotationTarget)
		return false
	}
	entry, ok := s.Clients.ByClient(id)
	if !ok {
		return false
	}
	ship, ok := s.Store.Get(entry.ObjectID)
	if !ok || ship.Kind() != KindShip {
		return false
	}
	ApplyImpulse(ship, c, s.tuning.InputDt)
	s.controls[ship.Object.ID] = c
	return true
}

// Step advances the world by dt seconds
func (s *Sim) Step(dt float64) {
	s.events = s.events[:0]
	s.now += dt
	s.steerAndFire(dt)
	s.integrate(dt)
	s.expire()
	s.resolveBullets()
	s.resolveContacts()
	s.Populate()
}

// Reconcile refreshes the puppets against the current world
func (s *Sim) Reconcile() ReconcileStats {
	return Reconcile(s.cfg, s.Loaded, s.Store, s.Clients)
}

// Populate tops the asteroid count back up toward the target
func (s *Sim) Populate() {
	n := s.Store.CountKind(KindAsteroid)
	if n >= s.tuning.AsteroidTarget {
		return
	}
	census := CensusOf(s.cfg, s.Store)
	for spawned := 0; n < s.tuning.AsteroidTarget && spawned < s.tuning.MaxSpawnsPerTick; spawned++ {
		pos, _ := SpawnPosition(census, s.rng)
		s.Store.Insert(NewAsteroid(s.rng, pos))
		census.AddObject(pos)
		n++
	}
}

func (s *Sim) steerAndFire(dt float64) {
	for id, cd := range s.fireCD {
		s.fireCD[id] = cd - dt
	}
	for id, cd := range s.hitCD {
		s.hitCD[id] = cd - dt
	}
	for _, e := range s.Store.Objects() {
		if e.Kind() != KindShip {
			continue
		}
		c, ok := s.controls[e.Object.ID]
		if !ok {
			continue
		}
		Steer(e, c.RotationTarget, dt)
		if c.Fire && s.fireCD[e.Object.ID] <= 0 {
			s.Store.Insert(NewBullet(e, s.now))
			s.fireCD[e.Object.ID] = ClassOf(e.Object.Type.Ship.Style).FireCD
		}
	}
}

func (s *Sim) integrate(dt float64) {
	for _, e := range s.Store.Objects() {
		prev := e.Transform.Translation
		next := physics.Integrate(e.Transform, e.Velocity, dt)
		wrapped := s.cfg.WrapPos(next.Translation)
		if e.Kind() == KindBullet {
			// keep the swept segment in the same frame as the wrapped position
			shift := wrapped.Sub(next.Translation)
			e.Object.Type = e.Object.Type.WithBullet(func(b Bullet) Bullet {
				b.PreviousPosition = prev.Add(shift)
				return b
			})
		}
		next.Translation = wrapped
		e.Transform = next
		if e.Kind() == KindShip {
			e.Velocity = e.Velocity.Damp(ShipLinearDamping, ShipAngularDamping, dt)
		}
	}
	for _, p := range s.Store.Puppets() {
		p.Transform = physics.Integrate(p.Transform, p.Velocity, dt)
	}
}

func (s *Sim) expire() {
	for _, e := range s.Store.Objects() {
		switch e.Kind() {
		case KindBullet:
			if BulletExpired(e, s.now) {
				s.forget(e.Object.ID)
			}
		case KindPickUp:
			if t, ok := s.pickupExpiry[e.Object.ID]; ok && s.now >= t {
				s.forget(e.Object.ID)
			}
		}
	}
}

// bodies collects colliders for every non-bullet entity and puppet
func (s *Sim) bodies() []physics.Body {
	var out []physics.Body
	for _, e := range s.Store.Objects() {
		if e.Kind() == KindBullet {
			continue
		}
		out = append(out, physics.Body{Handle: uint64(e.Object.ID), Pos: e.Transform.Translation, Radius: e.Look.Radius})
	}
	for _, p := range s.Store.Puppets() {
		if p.Look.Kind == KindBullet {
			continue
		}
		out = append(out, physics.Body{Handle: uint64(p.ID), Pos: p.Transform.Translation, Radius: p.Look.Radius})
	}
	return out
}

func (s *Sim) resolveBullets() {
	s.space.Reset(s.bodies())
	for _, e := range s.Store.Objects() {
		if e.Kind() != KindBullet {
			continue
		}
		b := e.Object.Type.Bullet
		for _, hit := range s.space.Segment(b.PreviousPosition, e.Transform.Translation, BulletRadius) {
			id := ObjectID(hit.Body.Handle)
			if id == b.Owner {
				continue
			}
			target, ok := s.Store.Get(id)
			if !ok || target.Kind() == KindPickUp {
				continue
			}
			s.damage(target, b.Damage, b.Owner)
			s.forget(e.Object.ID)
			break
		}
	}
}

func (s *Sim) resolveContacts() {
	s.space.Reset(s.bodies())
	seen := make(map[[2]ObjectID]struct{})
	for _, c := range s.space.Contacts() {
		a, b := ObjectID(c.A.Handle), ObjectID(c.B.Handle)
		if a == b {
			continue
		}
		if a > b {
			a, b = b, a
		}
		if _, ok := seen[[2]ObjectID{a, b}]; ok {
			continue
		}
		seen[[2]ObjectID{a, b}] = struct{}{}
		ea, okA := s.Store.Get(a)
		eb, okB := s.Store.Get(b)
		if !okA || !okB {
			continue
		}
		if eb.Kind() == KindShip {
			ea, eb = eb, ea
		}
		if ea.Kind() != KindShip {
			continue
		}
		switch eb.Kind() {
		case KindAsteroid:
			if s.hitCD[ea.Object.ID] > 0 {
				continue
			}
			s.hitCD[ea.Object.ID] = ShipHitCooldown
			s.damage(ea, AsteroidRamDamage, eb.Object.ID)
		case KindPickUp:
			ApplyPickup(ea, eb.Object.Type.PickUp.Kind)
			s.events = append(s.events, Event{Kind: EventPickupCollected, Object: eb.Object.ID, By: ea.Object.ID})
			s.forget(eb.Object.ID)
		}
	}
}

func (s *Sim) damage(target *Entity, dmg int32, by ObjectID) {
	switch target.Kind() {
	case KindAsteroid:
		if DamageAsteroid(target, dmg) {
			s.destroyAsteroid(target, by)
		}
	case KindShip:
		if DamageShip(target, dmg) {
			s.events = append(s.events, Event{Kind: EventShipDestroyed, Object: target.Object.ID, By: by})
			pos, _ := SpawnPosition(CensusOf(s.cfg, s.Store), s.rng)
			RespawnShip(target, pos)
			delete(s.hitCD, target.Object.ID)
		}
	}
}

func (s *Sim) destroyAsteroid(e *Entity, by ObjectID) {
	s.events = append(s.events, Event{Kind: EventAsteroidDestroyed, Object: e.Object.ID, By: by})
	s.forget(e.Object.ID)
	for _, frag := range SplitAsteroid(s.rng, e) {
		s.Store.Insert(frag)
	}
	if s.rng.Float64() < s.tuning.PickupDropChance {
		kind := PickupKind(s.rng.IntN(2))
		p := NewPickup(kind, e.Transform.Translation, randomDrift(s.rng, 0, PickupDropSpeed))
		s.Store.Insert(p)
		s.pickupExpiry[p.Object.ID] = s.now + PickupTimeout
	}
}

// forget removes an entity and its per-object bookkeeping
func (s *Sim) forget(id ObjectID) {
	s.Store.Remove(id)
	delete(s.controls, id)
	delete(s.fireCD, id)
	delete(s.hitCD, id)
	delete(s.pickupExpiry, id)
}
