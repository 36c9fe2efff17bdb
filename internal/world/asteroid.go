package world

import (
	"math"
	"math/rand/v2"

	"rusteroids/internal/chunk"
	"rusteroids/internal/physics"
)

const (
	AsteroidMaxSize   = 3
	AsteroidSizeStep  = 16.0 // radius per size step
	AsteroidMinSpeed  = 30.0
	AsteroidMaxSpeed  = 110.0
	AsteroidSpinMin   = 0.2
	AsteroidSpinMax   = 1.2
	AsteroidHPStep    = 30
	AsteroidSplitKick = 60.0 // extra speed given to split halves
	AsteroidRamDamage = 15   // damage a ship takes when it touches one
)

// AsteroidRadius returns the collider radius for a size
func AsteroidRadius(size uint8) float64 {
	return 8 + AsteroidSizeStep*float64(size)
}

// AsteroidMaxHP returns the starting hit points for a size
func AsteroidMaxHP(size uint8) int32 {
	return AsteroidHPStep * int32(size)
}

// NewAsteroid creates a full-size asteroid at pos drifting in a random
// direction
func NewAsteroid(rng *rand.Rand, pos chunk.Vec2) *Entity {
	return newAsteroid(rng, pos, AsteroidMaxSize, randomDrift(rng, AsteroidMinSpeed, AsteroidMaxSpeed))
}

func newAsteroid(rng *rand.Rand, pos chunk.Vec2, size uint8, vel chunk.Vec2) *Entity {
	spin := AsteroidSpinMin + rng.Float64()*(AsteroidSpinMax-AsteroidSpinMin)
	if rng.IntN(2) == 0 {
		spin = -spin
	}
	obj := Object{
		ID: NextObjectID(),
		Type: AsteroidType(Asteroid{
			Seed: rng.Uint64(),
			HP:   AsteroidMaxHP(size),
			Size: size,
		}),
	}
	return &Entity{
		Object:    obj,
		Transform: physics.Transform{Translation: pos, Rotation: rng.Float64() * 2 * math.Pi},
		Velocity:  physics.Velocity{Linear: vel, Angular: spin},
		Look:      asteroidLook(*obj.Type.Asteroid),
	}
}

// AsteroidHull derives the outline polygon from the seed. The same seed
// always yields the same outline, which is how clients and puppets agree on
// a rock's shape without it being sent.
func AsteroidHull(seed uint64, radius float64) []chunk.Vec2 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	n := 7 + rng.IntN(6)
	hull := make([]chunk.Vec2, n)
	step := 2 * math.Pi / float64(n)
	for i := range hull {
		a := float64(i)*step + (rng.Float64()-0.5)*step*0.5
		r := radius * (0.75 + 0.25*rng.Float64())
		hull[i] = chunk.FromAngle(a).Scale(r)
	}
	return hull
}

func asteroidLook(a Asteroid) Appearance {
	r := AsteroidRadius(a.Size)
	return Appearance{Kind: KindAsteroid, Radius: r, Hull: AsteroidHull(a.Seed, r)}
}

// DamageAsteroid returns e's variant with hp reduced. The result reports
// whether the rock is destroyed.
func DamageAsteroid(e *Entity, dmg int32) bool {
	e.Object.Type = e.Object.Type.WithAsteroid(func(a Asteroid) Asteroid {
		a.HP -= dmg
		return a
	})
	return e.Object.Type.Asteroid.HP <= 0
}

// SplitAsteroid returns the fragments a destroyed asteroid breaks into.
// Size-one rocks leave nothing.
func SplitAsteroid(rng *rand.Rand, e *Entity) []*Entity {
	a := e.Object.Type.Asteroid
	if a.Size <= 1 {
		return nil
	}
	size := a.Size - 1
	dir := chunk.FromAngle(rng.Float64() * 2 * math.Pi)
	offset := dir.Scale(AsteroidRadius(size) * 0.6)
	kick := dir.Scale(AsteroidSplitKick)
	base := e.Velocity.Linear
	return []*Entity{
		newAsteroid(rng, e.Transform.Translation.Add(offset), size, base.Add(kick)),
		newAsteroid(rng, e.Transform.Translation.Sub(offset), size, base.Sub(kick)),
	}
}

func randomDrift(rng *rand.Rand, min, max float64) chunk.Vec2 {
	speed := min + rng.Float64()*(max-min)
	return chunk.FromAngle(rng.Float64() * 2 * math.Pi).Scale(speed)
}
