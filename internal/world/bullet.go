package world

import (
	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
)

const (
	BulletLifetime  = 1.2 // seconds
	BulletRadius    = 3.0
	BulletMuzzleGap = 6.0 // spawn distance past the hull edge
	BulletInherit   = 0.3 // share of ship velocity added to the shot
)

// NewBullet fires a bullet from a ship along its facing direction
func NewBullet(owner *Entity, now float64) *Entity {
	class := ClassOf(owner.Object.Type.Ship.Style)
	dir := chunk.FromAngle(owner.Transform.Rotation)
	pos := owner.Transform.Translation.Add(dir.Scale(class.Radius + BulletMuzzleGap))
	vel := dir.Scale(class.BulletSpd).Add(owner.Velocity.Linear.Scale(BulletInherit))
	obj := Object{
		ID: NextObjectID(),
		Type: BulletType(Bullet{
			PreviousPosition: pos,
			SpawnTime:        now,
			Owner:            owner.Object.ID,
			Damage:           class.BulletDmg,
		}),
	}
	return &Entity{
		Object:    obj,
		Transform: physics.Transform{Translation: pos, Rotation: owner.Transform.Rotation},
		Velocity:  physics.Velocity{Linear: vel},
		Look:      Appearance{Kind: KindBullet, Radius: BulletRadius},
	}
}

// BulletExpired reports whether a bullet outlived BulletLifetime
func BulletExpired(e *Entity, now float64) bool {
	return now-e.Object.Type.Bullet.SpawnTime >= BulletLifetime
}
