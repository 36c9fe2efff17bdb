package world

import (
	"log"
	"math"
	"math/rand/v2"

	"rusteroids/internal/chunk"
)

// samplesPerObject scales how many candidate points are tried in a chunk
const samplesPerObject = 4

// Census is a snapshot of how crowded each canonical chunk is
type Census struct {
	cfg       chunk.GlobalConfig
	chunks    []chunk.Coord
	positions map[chunk.Coord][]chunk.Vec2 // wrapped world positions
	players   map[chunk.Coord]struct{}
}

// NewCensus starts an empty census over every canonical chunk
func NewCensus(cfg chunk.GlobalConfig) *Census {
	return &Census{
		cfg:       cfg,
		chunks:    cfg.RealChunks(),
		positions: make(map[chunk.Coord][]chunk.Vec2),
		players:   make(map[chunk.Coord]struct{}),
	}
}

// CensusOf counts every entity in store. Ships also mark their chunk as
// holding a player.
func CensusOf(cfg chunk.GlobalConfig, store *Store) *Census {
	c := NewCensus(cfg)
	for _, e := range store.Objects() {
		c.AddObject(e.Transform.Translation)
		if e.Kind() == KindShip {
			c.AddPlayer(e.Transform.Translation)
		}
	}
	return c
}

// AddObject records an object at pos
func (c *Census) AddObject(pos chunk.Vec2) {
	pos = c.cfg.WrapPos(pos)
	rc := c.cfg.PosToChunk(pos)
	c.positions[rc] = append(c.positions[rc], pos)
}

// AddPlayer marks the chunk holding pos as occupied by a player
func (c *Census) AddPlayer(pos chunk.Vec2) {
	c.players[c.cfg.PosToRealChunk(pos)] = struct{}{}
}

// Count returns the objects recorded in a canonical chunk
func (c *Census) Count(rc chunk.Coord) int {
	return len(c.positions[rc])
}

func (c *Census) adjacentToPlayer(rc chunk.Coord) bool {
	for _, n := range c.cfg.Neighbours(rc) {
		if _, ok := c.players[n]; ok {
			return true
		}
	}
	return false
}

// PickChunk chooses the chunk a new object should go to.
//
// Any empty chunk wins outright, picked uniformly. Otherwise chunks are
// ranked: no player and no player next door, then next to a player, then
// holding a player. Within the best non-empty rank the least crowded chunk
// wins, ties broken at random.
func (c *Census) PickChunk(rng *rand.Rand) (chunk.Coord, bool) {
	if len(c.chunks) == 0 {
		return chunk.Coord{}, false
	}
	var empty []chunk.Coord
	for _, rc := range c.chunks {
		if c.Count(rc) == 0 {
			empty = append(empty, rc)
		}
	}
	if len(empty) > 0 {
		return empty[rng.IntN(len(empty))], true
	}

	var free, adjacent, occupied []chunk.Coord
	for _, rc := range c.chunks {
		switch _, hasPlayer := c.players[rc]; {
		case hasPlayer:
			occupied = append(occupied, rc)
		case c.adjacentToPlayer(rc):
			adjacent = append(adjacent, rc)
		default:
			free = append(free, rc)
		}
	}
	for _, bucket := range [][]chunk.Coord{free, adjacent, occupied} {
		if len(bucket) == 0 {
			continue
		}
		best := math.MaxInt
		var ties []chunk.Coord
		for _, rc := range bucket {
			switch n := c.Count(rc); {
			case n < best:
				best = n
				ties = append(ties[:0], rc)
			case n == best:
				ties = append(ties, rc)
			}
		}
		return ties[rng.IntN(len(ties))], true
	}
	return chunk.Coord{}, false
}

// PickPoint samples points in rc and keeps the one farthest from both the
// chunk edges and the objects already there
func (c *Census) PickPoint(rng *rand.Rand, rc chunk.Coord) chunk.Vec2 {
	origin := c.cfg.ChunkToOffset(rc)
	size := c.cfg.SingleChunkSize
	existing := c.positions[rc]
	if len(existing) == 0 {
		return origin.Add(randomIn(rng, size))
	}

	samples := len(existing)*samplesPerObject + 1
	var best chunk.Vec2
	bestScore := -1.0
	for i := 0; i < samples; i++ {
		local := randomIn(rng, size)
		score := min(local.X, local.Y, size.X-local.X, size.Y-local.Y)
		p := origin.Add(local)
		for _, o := range existing {
			score = min(score, p.Dist(o))
		}
		if score > bestScore {
			bestScore = score
			best = p
		}
	}
	return best
}

// SpawnPosition picks a spawn point for a new object. When no chunk can be
// chosen it logs and falls back to the world origin with ok false.
func SpawnPosition(c *Census, rng *rand.Rand) (pos chunk.Vec2, ok bool) {
	rc, ok := c.PickChunk(rng)
	if !ok {
		log.Printf("placement: no candidate chunk, spawning at origin")
		return chunk.Vec2{}, false
	}
	return c.PickPoint(rng, rc), true
}

func randomIn(rng *rand.Rand, size chunk.Vec2) chunk.Vec2 {
	return chunk.V(rng.Float64()*size.X, rng.Float64()*size.Y)
}
