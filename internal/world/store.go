package world

import (
	"slices"

	"rusteroids/internal/physics"
)

// Entity is an authoritative object with its body state and derived look
type Entity struct {
	Object    Object
	Transform physics.Transform
	Velocity  physics.Velocity
	Look      Appearance
}

// Kind is shorthand for e.Object.Type.Kind
func (e *Entity) Kind() Kind {
	return e.Object.Type.Kind
}

// PuppetEntity is a shadow copy of an entity pinned to one shadow chunk
type PuppetEntity struct {
	Puppet
	Transform physics.Transform
	Velocity  physics.Velocity
	Look      Appearance
}

// PuppetHandle addresses a puppet inside a Store
type PuppetHandle uint64

// Store owns every authoritative entity and every puppet of one simulation.
// Iteration order is by ObjectID for entities and by handle for puppets, so
// a run over the same input always visits things in the same order.
type Store struct {
	objects    map[ObjectID]*Entity
	puppets    map[PuppetHandle]*PuppetEntity
	nextHandle PuppetHandle
}

func NewStore() *Store {
	return &Store{
		objects: make(map[ObjectID]*Entity),
		puppets: make(map[PuppetHandle]*PuppetEntity),
	}
}

// Insert adds e, replacing any entity with the same id
func (s *Store) Insert(e *Entity) {
	s.objects[e.Object.ID] = e
}

// Get returns the entity with the given id
func (s *Store) Get(id ObjectID) (*Entity, bool) {
	e, ok := s.objects[id]
	return e, ok
}

// Remove deletes an entity. Its puppets stay until the next Reconcile.
func (s *Store) Remove(id ObjectID) bool {
	if _, ok := s.objects[id]; !ok {
		return false
	}
	delete(s.objects, id)
	return true
}

// Len returns the number of authoritative entities
func (s *Store) Len() int {
	return len(s.objects)
}

// IDs returns all entity ids in ascending order
func (s *Store) IDs() []ObjectID {
	ids := make([]ObjectID, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Objects returns all entities in id order
func (s *Store) Objects() []*Entity {
	ids := s.IDs()
	out := make([]*Entity, len(ids))
	for i, id := range ids {
		out[i] = s.objects[id]
	}
	return out
}

// CountKind returns how many entities hold the given variant
func (s *Store) CountKind(k Kind) int {
	n := 0
	for _, e := range s.objects {
		if e.Kind() == k {
			n++
		}
	}
	return n
}

// SpawnPuppet adds a puppet and returns its handle
func (s *Store) SpawnPuppet(p *PuppetEntity) PuppetHandle {
	s.nextHandle++
	s.puppets[s.nextHandle] = p
	return s.nextHandle
}

// Puppet returns the puppet behind a handle
func (s *Store) Puppet(h PuppetHandle) (*PuppetEntity, bool) {
	p, ok := s.puppets[h]
	return p, ok
}

// RemovePuppet deletes a puppet
func (s *Store) RemovePuppet(h PuppetHandle) {
	delete(s.puppets, h)
}

// PuppetHandles returns all live handles in ascending order
func (s *Store) PuppetHandles() []PuppetHandle {
	hs := make([]PuppetHandle, 0, len(s.puppets))
	for h := range s.puppets {
		hs = append(hs, h)
	}
	slices.Sort(hs)
	return hs
}

// Puppets returns all puppets in handle order
func (s *Store) Puppets() []*PuppetEntity {
	hs := s.PuppetHandles()
	out := make([]*PuppetEntity, len(hs))
	for i, h := range hs {
		out[i] = s.puppets[h]
	}
	return out
}

// PuppetsOf returns the puppets shadowing id, in handle order
func (s *Store) PuppetsOf(id ObjectID) []*PuppetEntity {
	var out []*PuppetEntity
	for _, p := range s.Puppets() {
		if p.ID == id {
			out = append(out, p)
		}
	}
	return out
}

// PuppetCount returns the number of live puppets
func (s *Store) PuppetCount() int {
	return len(s.puppets)
}

// Clear drops every entity and puppet
func (s *Store) Clear() {
	clear(s.objects)
	clear(s.puppets)
}
