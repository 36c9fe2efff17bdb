package chunk

import "math"

// Vec2 is a point or direction in world space
type Vec2 struct {
	_msgpack struct{} `msgpack:",as_array"`
	X, Y     float64
}

// V is shorthand for Vec2{X: x, Y: y}
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{X: v.X * s, Y: v.Y * s} }

// Mul multiplies component-wise
func (v Vec2) Mul(o Vec2) Vec2 { return Vec2{X: v.X * o.X, Y: v.Y * o.Y} }

// Len returns the vector length
func (v Vec2) Len() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y)
}

// Dist returns the distance between two points
func (v Vec2) Dist(o Vec2) float64 {
	return o.Sub(v).Len()
}

// Near reports whether both components are within eps of o
func (v Vec2) Near(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Y-o.Y) <= eps
}

// FromAngle returns a unit vector pointing at angle a (radians)
func FromAngle(a float64) Vec2 {
	return Vec2{X: math.Cos(a), Y: math.Sin(a)}
}

// Clamp restricts v to [min, max]
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// NormalizeAngle wraps angle to [-PI, PI]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}

// modf is the Euclidean remainder of a by n, always in [0, n)
func modf(a, n float64) float64 {
	m := math.Mod(a, n)
	if m < 0 {
		m += n
	}
	// -1e-18 + n rounds to n
	if m >= n {
		m = 0
	}
	return m
}

// modi is the Euclidean remainder of a by n, always in [0, n)
func modi(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
