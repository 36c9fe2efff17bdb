package world

import (
	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
)

const (
	ShipLinearDamping  = 0.6 // velocity retained per second
	ShipAngularDamping = 0.05
	ShipHitCooldown    = 0.5 // seconds between ram hits on the same ship
)

// Controls is one sample of a player's input
type Controls struct {
	Up, Down, Left, Right bool
	RotationTarget        float64
	Fire                  bool
}

// Thrust returns the unit-ish direction requested by the held keys.
// Up points toward negative Y.
func (c Controls) Thrust() chunk.Vec2 {
	var d chunk.Vec2
	if c.Up {
		d.Y--
	}
	if c.Down {
		d.Y++
	}
	if c.Left {
		d.X--
	}
	if c.Right {
		d.X++
	}
	if l := d.Len(); l > 0 {
		d = d.Scale(1 / l)
	}
	return d
}

// NewShip creates a ship dressed in the client's cosmetics
func NewShip(data ClientData, pos chunk.Vec2) *Entity {
	class := ClassOf(data.Style)
	obj := Object{
		ID: NextObjectID(),
		Type: ShipType(Ship{
			Style:   data.Style,
			Color:   data.Color,
			Shields: class.MaxShields,
			HP:      class.MaxHP,
		}),
	}
	return &Entity{
		Object:    obj,
		Transform: physics.Transform{Translation: pos},
		Look:      shipLook(*obj.Type.Ship, data.Name),
	}
}

// ApplyImpulse adds the thrust requested by c over dt seconds to the ship
// velocity. It never replaces the existing velocity.
func ApplyImpulse(e *Entity, c Controls, dt float64) {
	class := ClassOf(e.Object.Type.Ship.Style)
	v := e.Velocity
	v.Linear = v.Linear.Add(c.Thrust().Scale(class.Thrust * dt))
	e.Velocity = v.ClampSpeed(class.MaxSpeed)
}

// Steer sets the angular velocity that turns the ship toward target,
// limited by the class turn speed
func Steer(e *Entity, target, dt float64) {
	if dt <= 0 {
		return
	}
	class := ClassOf(e.Object.Type.Ship.Style)
	diff := chunk.NormalizeAngle(target - e.Transform.Rotation)
	e.Velocity.Angular = chunk.Clamp(diff/dt, -class.TurnSpeed, class.TurnSpeed)
}

// DamageShip drains shields first, then hull. It returns true if the ship
// was destroyed.
func DamageShip(e *Entity, dmg int32) bool {
	e.Object.Type = e.Object.Type.WithShip(func(s Ship) Ship {
		absorbed := min(s.Shields, dmg)
		s.Shields -= absorbed
		s.HP -= dmg - absorbed
		if s.HP < 0 {
			s.HP = 0
		}
		return s
	})
	return e.Object.Type.Ship.HP <= 0
}

// RespawnShip restores a destroyed ship at pos, keeping its id
func RespawnShip(e *Entity, pos chunk.Vec2) {
	class := ClassOf(e.Object.Type.Ship.Style)
	e.Object.Type = e.Object.Type.WithShip(func(s Ship) Ship {
		s.HP = class.MaxHP
		s.Shields = class.MaxShields
		return s
	})
	e.Transform = physics.Transform{Translation: pos}
	e.Velocity = physics.Velocity{}
}

// Restyle applies new cosmetics to a live ship. Switching hull class clamps
// hp and shields to the new maximum.
func Restyle(e *Entity, data ClientData) {
	class := ClassOf(data.Style)
	e.Object.Type = e.Object.Type.WithShip(func(s Ship) Ship {
		s.Style = data.Style
		s.Color = data.Color
		s.HP = min(s.HP, class.MaxHP)
		s.Shields = min(s.Shields, class.MaxShields)
		return s
	})
	e.Look = shipLook(*e.Object.Type.Ship, data.Name)
}

func shipLook(s Ship, name string) Appearance {
	return Appearance{
		Kind:   KindShip,
		Radius: ClassOf(s.Style).Radius,
		Name:   name,
		Style:  s.Style,
		Color:  s.Color,
	}
}
