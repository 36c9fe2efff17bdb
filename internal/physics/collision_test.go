package physics

import (
	"math"
	"testing"

	"rusteroids/internal/chunk"
)

func TestCheckCollision(t *testing.T) {
	// Overlapping circles
	if !CheckCollision(chunk.V(0, 0), 10, chunk.V(15, 0), 10) {
		t.Error("circles should collide (overlapping)")
	}

	// Touching circles
	if !CheckCollision(chunk.V(0, 0), 10, chunk.V(20, 0), 10) {
		t.Error("circles should collide (touching)")
	}

	// Non-overlapping circles
	if CheckCollision(chunk.V(0, 0), 10, chunk.V(25, 0), 10) {
		t.Error("circles should not collide")
	}

	// Same position
	if !CheckCollision(chunk.V(5, 5), 1, chunk.V(5, 5), 1) {
		t.Error("same position should collide")
	}
}

func TestSegmentCircle(t *testing.T) {
	// Passes straight through a circle centred on the segment
	tt, ok := SegmentCircle(chunk.V(0, 0), chunk.V(100, 0), chunk.V(50, 0), 10)
	if !ok {
		t.Fatal("segment should hit the circle")
	}
	if math.Abs(tt-0.4) > 1e-9 {
		t.Errorf("expected entry at t=0.4, got %f", tt)
	}

	// Misses
	if _, ok := SegmentCircle(chunk.V(0, 0), chunk.V(100, 0), chunk.V(50, 30), 10); ok {
		t.Error("segment should miss the circle")
	}

	// Starts inside
	if tt, ok := SegmentCircle(chunk.V(50, 0), chunk.V(100, 0), chunk.V(50, 0), 10); !ok || tt != 0 {
		t.Errorf("segment starting inside should hit at t=0, got %f %v", tt, ok)
	}

	// Zero length outside
	if _, ok := SegmentCircle(chunk.V(0, 0), chunk.V(0, 0), chunk.V(50, 0), 10); ok {
		t.Error("degenerate segment outside the circle should miss")
	}
}

func TestIntegrate(t *testing.T) {
	tr := Transform{Translation: chunk.V(10, 10)}
	v := Velocity{Linear: chunk.V(60, -30), Angular: 1}
	got := Integrate(tr, v, 0.5)
	if !got.Translation.Near(chunk.V(40, -5), 1e-9) {
		t.Errorf("unexpected translation %v", got.Translation)
	}
	if math.Abs(got.Rotation-0.5) > 1e-9 {
		t.Errorf("unexpected rotation %f", got.Rotation)
	}
}

func TestVelocityClampAndDamp(t *testing.T) {
	v := Velocity{Linear: chunk.V(300, 400)}.ClampSpeed(100)
	if math.Abs(v.Linear.Len()-100) > 1e-9 {
		t.Errorf("expected speed 100, got %f", v.Linear.Len())
	}
	d := Velocity{Linear: chunk.V(100, 0), Angular: 2}.Damp(0.5, 0.25, 1)
	if math.Abs(d.Linear.X-50) > 1e-9 || math.Abs(d.Angular-0.5) > 1e-9 {
		t.Errorf("unexpected damped velocity %+v", d)
	}
}
