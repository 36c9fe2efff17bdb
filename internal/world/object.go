package world

import (
	"fmt"
	"sync/atomic"

	"rusteroids/internal/chunk"
)

// ObjectID identifies one logical game entity. Zero is never handed out.
type ObjectID uint64

// InvalidObjectID is the reserved zero id
const InvalidObjectID ObjectID = 0

var lastObjectID atomic.Uint64

// NextObjectID returns a process-unique, monotonically increasing id
func NextObjectID() ObjectID {
	return ObjectID(lastObjectID.Add(1))
}

// Kind tags the variant held by an ObjectType
type Kind uint8

const (
	KindAsteroid Kind = iota
	KindBullet
	KindShip
	KindPickUp
)

func (k Kind) String() string {
	switch k {
	case KindAsteroid:
		return "asteroid"
	case KindBullet:
		return "bullet"
	case KindShip:
		return "ship"
	case KindPickUp:
		return "pickup"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Asteroid payload. Size is the split generation: 3 is a fresh rock,
// 1 breaks into nothing.
type Asteroid struct {
	_msgpack struct{} `msgpack:",as_array"`
	Seed     uint64
	HP       int32
	Size     uint8
}

// Bullet payload. PreviousPosition is where the bullet was one step ago,
// used for swept hit tests.
type Bullet struct {
	_msgpack         struct{} `msgpack:",as_array"`
	PreviousPosition chunk.Vec2
	SpawnTime        float64
	Owner            ObjectID
	Damage           int32
}

// Ship payload
type Ship struct {
	_msgpack struct{} `msgpack:",as_array"`
	Style    Style
	Color    Color
	Shields  int32
	HP       int32
}

// PickUp payload
type PickUp struct {
	_msgpack struct{} `msgpack:",as_array"`
	Kind     PickupKind
}

// ObjectType is a tagged variant: exactly one payload is set and it matches
// Kind. Payloads are never mutated in place; use the With* helpers which
// rebuild the variant.
type ObjectType struct {
	_msgpack struct{} `msgpack:",as_array"`
	Kind     Kind
	Asteroid *Asteroid
	Bullet   *Bullet
	Ship     *Ship
	PickUp   *PickUp
}

func AsteroidType(a Asteroid) ObjectType { return ObjectType{Kind: KindAsteroid, Asteroid: &a} }
func BulletType(b Bullet) ObjectType     { return ObjectType{Kind: KindBullet, Bullet: &b} }
func ShipType(s Ship) ObjectType         { return ObjectType{Kind: KindShip, Ship: &s} }
func PickUpType(p PickUp) ObjectType     { return ObjectType{Kind: KindPickUp, PickUp: &p} }

// Valid reports whether the payload matches the tag
func (t ObjectType) Valid() bool {
	set := 0
	for _, p := range []bool{t.Asteroid != nil, t.Bullet != nil, t.Ship != nil, t.PickUp != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return false
	}
	switch t.Kind {
	case KindAsteroid:
		return t.Asteroid != nil
	case KindBullet:
		return t.Bullet != nil
	case KindShip:
		return t.Ship != nil
	case KindPickUp:
		return t.PickUp != nil
	}
	return false
}

// WithAsteroid returns a new variant built from f applied to the payload.
// t must be an asteroid.
func (t ObjectType) WithAsteroid(f func(Asteroid) Asteroid) ObjectType {
	return AsteroidType(f(*t.Asteroid))
}

// WithBullet is WithAsteroid for bullets
func (t ObjectType) WithBullet(f func(Bullet) Bullet) ObjectType {
	return BulletType(f(*t.Bullet))
}

// WithShip is WithAsteroid for ships
func (t ObjectType) WithShip(f func(Ship) Ship) ObjectType {
	return ShipType(f(*t.Ship))
}

// Object is the authoritative record of a game entity
type Object struct {
	_msgpack struct{} `msgpack:",as_array"`
	ID       ObjectID
	Type     ObjectType
}

// Puppet is a chunk-bound shadow of an Object
type Puppet struct {
	ID          ObjectID
	BindedChunk chunk.Coord
}

// Color is an RGB triple on the 0-255 scale
type Color struct {
	_msgpack struct{} `msgpack:",as_array"`
	R, G, B  uint8
}

// RGB is shorthand for Color{R: r, G: g, B: b}
func RGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}
