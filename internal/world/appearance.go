package world

import "rusteroids/internal/chunk"

// Appearance is everything needed to draw or collide an object that is not
// part of its replicated state. It is always re-derived from the Object,
// never sent.
type Appearance struct {
	Kind   Kind
	Radius float64
	Hull   []chunk.Vec2 // asteroid outline around the origin
	Name   string
	Style  Style
	Color  Color
	Pickup PickupKind
}

// DeriveLook rebuilds the appearance of obj. Ships take their name and
// cosmetics from the owning client; ok is false when a ship has no client
// binding yet.
func DeriveLook(obj Object, clients *ClientsData) (Appearance, bool) {
	t := obj.Type
	if !t.Valid() {
		return Appearance{}, false
	}
	switch t.Kind {
	case KindAsteroid:
		return asteroidLook(*t.Asteroid), true
	case KindBullet:
		return Appearance{Kind: KindBullet, Radius: BulletRadius}, true
	case KindPickUp:
		return Appearance{Kind: KindPickUp, Radius: PickupRadius, Pickup: t.PickUp.Kind}, true
	case KindShip:
		entry, ok := clients.ByObject(obj.ID)
		if !ok {
			return Appearance{}, false
		}
		s := *t.Ship
		s.Style = entry.Data.Style
		s.Color = entry.Data.Color
		return shipLook(s, entry.Data.Name), true
	}
	return Appearance{}, false
}
