package chunk

import "testing"

func TestRingCoversShadowBorder(t *testing.T) {
	g := testGrid()
	in := Ring(g, 1)
	if in.Len() != 16 {
		t.Fatalf("expected 4x4 chunk instances, got %d", in.Len())
	}
	real, shadow := in.Split(g)
	if len(real) != 4 {
		t.Errorf("expected 4 real chunks, got %d", len(real))
	}
	if len(shadow) != 12 {
		t.Errorf("expected 12 shadow chunks, got %d", len(shadow))
	}
	for _, c := range []Coord{C(-1, -1), C(2, 2), C(-1, 0), C(0, 2)} {
		if !in.Contains(c) {
			t.Errorf("ring should contain %v", c)
		}
	}
	if in.Contains(C(3, 0)) || in.Contains(C(-2, 0)) {
		t.Error("ring should stop one chunk past the edge")
	}
}

func TestAroundKeepsShadowInstances(t *testing.T) {
	g := testGrid()
	in := Around(g, V(10, 10), 1)
	if in.Len() != 9 {
		t.Fatalf("expected 9 chunks, got %d", in.Len())
	}
	if !in.Contains(C(-1, -1)) {
		t.Error("expected shadow chunk (-1,-1) around the map corner")
	}
}

func TestUnionDedups(t *testing.T) {
	a := NewInterest(C(0, 0), C(1, 0))
	b := NewInterest(C(1, 0), C(2, 0))
	u := Union(a, nil, b)
	if u.Len() != 3 {
		t.Fatalf("expected 3 chunks, got %d", u.Len())
	}
	want := []Coord{C(0, 0), C(1, 0), C(2, 0)}
	for i, c := range u.Chunks() {
		if c != want[i] {
			t.Errorf("chunk %d = %v, want %v", i, c, want[i])
		}
	}
}

func TestNilInterest(t *testing.T) {
	var in *Interest
	if in.Contains(C(0, 0)) || in.Len() != 0 || in.Chunks() != nil {
		t.Error("nil interest should behave as empty")
	}
}
