package world

import (
	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
)

// PickupKind selects what a pickup restores
type PickupKind uint8

const (
	PickupRepair PickupKind = iota // restores hull
	PickupRecharge                 // restores shields
)

const (
	PickupRadius    = 15.0
	PickupRepairHP  = 30
	PickupShieldHP  = 25
	PickupTimeout   = 30.0 // seconds before an uncollected pickup fades
	PickupDropSpeed = 20.0
)

// NewPickup drops a pickup at pos
func NewPickup(kind PickupKind, pos chunk.Vec2, drift chunk.Vec2) *Entity {
	return &Entity{
		Object:    Object{ID: NextObjectID(), Type: PickUpType(PickUp{Kind: kind})},
		Transform: physics.Transform{Translation: pos},
		Velocity:  physics.Velocity{Linear: drift},
		Look:      Appearance{Kind: KindPickUp, Radius: PickupRadius, Pickup: kind},
	}
}

// ApplyPickup grants the pickup to a ship, capped at the hull class maximum
func ApplyPickup(ship *Entity, kind PickupKind) {
	class := ClassOf(ship.Object.Type.Ship.Style)
	ship.Object.Type = ship.Object.Type.WithShip(func(s Ship) Ship {
		switch kind {
		case PickupRepair:
			s.HP = min(s.HP+PickupRepairHP, class.MaxHP)
		case PickupRecharge:
			s.Shields = min(s.Shields+PickupShieldHP, class.MaxShields)
		}
		return s
	})
}
