package physics

import (
	"math"

	"rusteroids/internal/chunk"
)

// CheckCollision checks if two circles overlap
func CheckCollision(a chunk.Vec2, ra float64, b chunk.Vec2, rb float64) bool {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dist2 := dx*dx + dy*dy
	radSum := ra + rb
	return dist2 <= radSum*radSum
}

// SegmentCircle returns the first parameter t in [0,1] at which the segment
// p1->p2 touches the circle (c, r). ok is false when they never touch.
// A segment starting inside the circle reports t = 0.
func SegmentCircle(p1, p2, c chunk.Vec2, r float64) (t float64, ok bool) {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	fx := p1.X - c.X
	fy := p1.Y - c.Y
	if fx*fx+fy*fy <= r*r {
		return 0, true
	}
	a := dx*dx + dy*dy
	if a == 0 {
		return 0, false
	}
	b := 2 * (fx*dx + fy*dy)
	cc := fx*fx + fy*fy - r*r
	discriminant := b*b - 4*a*cc
	if discriminant < 0 {
		return 0, false
	}
	discriminant = math.Sqrt(discriminant)
	t1 := (-b - discriminant) / (2 * a)
	t2 := (-b + discriminant) / (2 * a)
	switch {
	case t1 >= 0 && t1 <= 1:
		return t1, true
	case t2 >= 0 && t2 <= 1:
		return t2, true
	}
	return 0, false
}

// Transform is a body's placement in the world
type Transform struct {
	_msgpack    struct{} `msgpack:",as_array"`
	Translation chunk.Vec2
	Rotation    float64
}

// Velocity holds linear (units/s) and angular (rad/s) velocity
type Velocity struct {
	_msgpack struct{} `msgpack:",as_array"`
	Linear   chunk.Vec2
	Angular  float64
}

// Integrate advances t by v over dt seconds
func Integrate(t Transform, v Velocity, dt float64) Transform {
	return Transform{
		Translation: t.Translation.Add(v.Linear.Scale(dt)),
		Rotation:    chunk.NormalizeAngle(t.Rotation + v.Angular*dt),
	}
}

// Damp applies per-second damping factors, frame-rate independent
func (v Velocity) Damp(linear, angular, dt float64) Velocity {
	return Velocity{
		Linear:  v.Linear.Scale(math.Pow(linear, dt)),
		Angular: v.Angular * math.Pow(angular, dt),
	}
}

// ClampSpeed limits the linear speed to max
func (v Velocity) ClampSpeed(max float64) Velocity {
	speed := v.Linear.Len()
	if speed > max && speed > 0 {
		v.Linear = v.Linear.Scale(max / speed)
	}
	return v
}
