package chunk

// Interest is the set of chunk instances that must currently be streamed
// (LoadedChunks). Order of insertion is kept so iteration is deterministic.
type Interest struct {
	chunks []Coord
	index  map[Coord]struct{}
}

// NewInterest builds an interest set, dropping duplicate chunks
func NewInterest(chunks ...Coord) *Interest {
	in := &Interest{index: make(map[Coord]struct{}, len(chunks))}
	for _, c := range chunks {
		in.Add(c)
	}
	return in
}

// Ring covers the whole map plus ring layers of shadow chunks on every
// side, i.e. every chunk in [-ring, size+ring) on both axes.
func Ring(g GlobalConfig, ring int) *Interest {
	w, h := g.MapSize()
	in := NewInterest()
	for y := -ring; y < h+ring; y++ {
		for x := -ring; x < w+ring; x++ {
			in.Add(C(x, y))
		}
	}
	return in
}

// Around covers the chunk instances within radius chunks of pos. Chunks
// past the map edge are kept as shadow instances, not wrapped.
func Around(g GlobalConfig, pos Vec2, radius int) *Interest {
	center := g.PosToChunk(pos)
	in := NewInterest()
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - radius; x <= center.X+radius; x++ {
			in.Add(C(x, y))
		}
	}
	return in
}

// Union merges several interest sets, first occurrence wins the order
func Union(sets ...*Interest) *Interest {
	in := NewInterest()
	for _, s := range sets {
		if s == nil {
			continue
		}
		for _, c := range s.chunks {
			in.Add(c)
		}
	}
	return in
}

// Add inserts c if it is not present yet
func (in *Interest) Add(c Coord) {
	if _, ok := in.index[c]; ok {
		return
	}
	in.index[c] = struct{}{}
	in.chunks = append(in.chunks, c)
}

// Contains reports whether c is part of the set
func (in *Interest) Contains(c Coord) bool {
	if in == nil {
		return false
	}
	_, ok := in.index[c]
	return ok
}

// Chunks returns the chunk instances in insertion order
func (in *Interest) Chunks() []Coord {
	if in == nil {
		return nil
	}
	return in.chunks
}

// Len returns the number of chunk instances
func (in *Interest) Len() int {
	if in == nil {
		return 0
	}
	return len(in.chunks)
}

// Split partitions the set into canonical chunks and shadow instances
func (in *Interest) Split(g GlobalConfig) (real, shadow []Coord) {
	for _, c := range in.Chunks() {
		if g.IsReal(c) {
			real = append(real, c)
		} else {
			shadow = append(shadow, c)
		}
	}
	return real, shadow
}
