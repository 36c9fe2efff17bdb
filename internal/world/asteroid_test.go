package world

import (
	"testing"

	"rusteroids/internal/chunk"
)

func TestAsteroidHullDeterministic(t *testing.T) {
	a := AsteroidHull(42, 40)
	b := AsteroidHull(42, 40)
	if len(a) < 7 || len(a) > 12 {
		t.Fatalf("unexpected vertex count %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vertex %d differs between runs", i)
		}
		if r := a[i].Len(); r < 30-1e-9 || r > 40+1e-9 {
			t.Errorf("vertex %d radius %f outside [30,40]", i, r)
		}
	}
	c := AsteroidHull(43, 40)
	same := len(a) == len(c)
	for i := 0; same && i < len(a); i++ {
		same = a[i] == c[i]
	}
	if same {
		t.Error("different seeds should give different hulls")
	}
}

func TestNewAsteroid(t *testing.T) {
	e := NewAsteroid(testRNG(), chunk.V(100, 100))
	a := e.Object.Type.Asteroid
	if a == nil || a.Size != AsteroidMaxSize || a.HP != AsteroidMaxHP(AsteroidMaxSize) {
		t.Fatalf("unexpected asteroid payload %+v", a)
	}
	speed := e.Velocity.Linear.Len()
	if speed < AsteroidMinSpeed || speed > AsteroidMaxSpeed {
		t.Errorf("speed %f out of range", speed)
	}
	if e.Look.Radius != AsteroidRadius(AsteroidMaxSize) {
		t.Errorf("look radius %f does not match size", e.Look.Radius)
	}
}

func TestAsteroidDamageAndSplit(t *testing.T) {
	rng := testRNG()
	e := NewAsteroid(rng, chunk.V(100, 100))
	if DamageAsteroid(e, 10) {
		t.Fatal("10 damage should not destroy a full asteroid")
	}
	if !DamageAsteroid(e, 1000) {
		t.Fatal("1000 damage should destroy it")
	}

	frags := SplitAsteroid(rng, e)
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	for _, f := range frags {
		fa := f.Object.Type.Asteroid
		if fa.Size != AsteroidMaxSize-1 || fa.HP != AsteroidMaxHP(AsteroidMaxSize-1) {
			t.Errorf("unexpected fragment %+v", fa)
		}
		if f.Object.ID == e.Object.ID {
			t.Error("fragment reused the parent id")
		}
	}
	if frags[0].Object.Type.Asteroid.Seed == frags[1].Object.Type.Asteroid.Seed {
		t.Error("fragments should get their own seeds")
	}

	smallest := testRock(chunk.V(0, 0))
	if got := SplitAsteroid(rng, smallest); got != nil {
		t.Errorf("size 1 should not split, got %d fragments", len(got))
	}
}
