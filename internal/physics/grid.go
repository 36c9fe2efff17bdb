package physics

import (
	"math"
	"sort"

	"rusteroids/internal/chunk"
)

// Grid is a uniform grid for broad-phase queries over a rectangle.
// Positions outside the rectangle clamp to the border cells.
type Grid struct {
	min      chunk.Vec2
	cellSize float64
	cols     int
	rows     int
	cells    [][]int
}

// NewGrid covers [min, max) with square cells of cellSize
func NewGrid(min, max chunk.Vec2, cellSize float64) *Grid {
	cols := int(math.Ceil((max.X-min.X)/cellSize)) + 1
	rows := int(math.Ceil((max.Y-min.Y)/cellSize)) + 1
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	return &Grid{
		min:      min,
		cellSize: cellSize,
		cols:     cols,
		rows:     rows,
		cells:    make([][]int, cols*rows),
	}
}

// Clear resets all cells (keeps allocated capacity)
func (g *Grid) Clear() {
	for i := range g.cells {
		g.cells[i] = g.cells[i][:0]
	}
}

func (g *Grid) cellRange(p chunk.Vec2, radius float64) (minCX, minCY, maxCX, maxCY int) {
	minCX = g.clampX(int(math.Floor((p.X - radius - g.min.X) / g.cellSize)))
	maxCX = g.clampX(int(math.Floor((p.X + radius - g.min.X) / g.cellSize)))
	minCY = g.clampY(int(math.Floor((p.Y - radius - g.min.Y) / g.cellSize)))
	maxCY = g.clampY(int(math.Floor((p.Y + radius - g.min.Y) / g.cellSize)))
	return
}

func (g *Grid) clampX(cx int) int {
	if cx < 0 {
		return 0
	}
	if cx >= g.cols {
		return g.cols - 1
	}
	return cx
}

func (g *Grid) clampY(cy int) int {
	if cy < 0 {
		return 0
	}
	if cy >= g.rows {
		return g.rows - 1
	}
	return cy
}

// Insert adds an index at the given position
func (g *Grid) Insert(p chunk.Vec2, idx int) {
	g.InsertCircle(p, 0, idx)
}

// InsertCircle adds an index to all cells overlapping the circle's bounding box
func (g *Grid) InsertCircle(p chunk.Vec2, radius float64, idx int) {
	minCX, minCY, maxCX, maxCY := g.cellRange(p, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			i := cy*g.cols + cx
			g.cells[i] = append(g.cells[i], idx)
		}
	}
}

// QueryBuf appends the indexes in cells overlapping the bounding box and
// returns the extended slice. An index may appear more than once.
func (g *Grid) QueryBuf(p chunk.Vec2, radius float64, buf []int) []int {
	minCX, minCY, maxCX, maxCY := g.cellRange(p, radius)
	for cy := minCY; cy <= maxCY; cy++ {
		for cx := minCX; cx <= maxCX; cx++ {
			buf = append(buf, g.cells[cy*g.cols+cx]...)
		}
	}
	return buf
}

// Body is a circular collider handed to a Space for one step
type Body struct {
	Handle uint64
	Pos    chunk.Vec2
	Radius float64
}

// Contact is an overlapping pair of bodies, A < B by index
type Contact struct {
	A, B Body
}

// Hit is a segment query result
type Hit struct {
	Body Body
	T    float64
}

// Space answers contact and segment queries over a fixed set of bodies
type Space struct {
	grid   *Grid
	bodies []Body
	maxR   float64
	buf    []int
}

// NewSpace creates a space covering [min, max)
func NewSpace(min, max chunk.Vec2, cellSize float64) *Space {
	return &Space{grid: NewGrid(min, max, cellSize)}
}

// Reset replaces the bodies in the space
func (s *Space) Reset(bodies []Body) {
	s.grid.Clear()
	s.bodies = append(s.bodies[:0], bodies...)
	s.maxR = 0
	for i, b := range s.bodies {
		s.grid.InsertCircle(b.Pos, b.Radius, i)
		if b.Radius > s.maxR {
			s.maxR = b.Radius
		}
	}
}

// Contacts returns every overlapping pair, each pair once, in index order
func (s *Space) Contacts() []Contact {
	var out []Contact
	for i, a := range s.bodies {
		for _, j := range s.query(a.Pos, a.Radius+s.maxR) {
			if j <= i {
				continue
			}
			b := s.bodies[j]
			if CheckCollision(a.Pos, a.Radius, b.Pos, b.Radius) {
				out = append(out, Contact{A: a, B: b})
			}
		}
	}
	return out
}

// Segment returns the bodies touched by the segment p1->p2, nearest first.
// radius widens the segment into a capsule.
func (s *Space) Segment(p1, p2 chunk.Vec2, radius float64) []Hit {
	mid := p1.Add(p2).Scale(0.5)
	reach := p1.Dist(p2)/2 + radius + s.maxR
	var hits []Hit
	for _, j := range s.query(mid, reach) {
		b := s.bodies[j]
		if t, ok := SegmentCircle(p1, p2, b.Pos, b.Radius+radius); ok {
			hits = append(hits, Hit{Body: b, T: t})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].T < hits[j].T })
	return hits
}

// query returns unique, sorted indexes near p
func (s *Space) query(p chunk.Vec2, radius float64) []int {
	s.buf = s.grid.QueryBuf(p, radius, s.buf[:0])
	sort.Ints(s.buf)
	out := s.buf[:0]
	for _, v := range s.buf {
		if len(out) > 0 && out[len(out)-1] == v {
			continue
		}
		out = append(out, v)
	}
	return append([]int(nil), out...)
}
