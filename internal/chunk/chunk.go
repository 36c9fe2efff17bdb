// Package chunk maps world positions onto the toroidal chunk grid.
//
// The world is MapSizeChunks chunks wide and high; every chunk is
// SingleChunkSize world units. A chunk coordinate outside
// [0, MapSizeChunks) names a shadow instance of the canonical ("real")
// chunk it wraps onto.
package chunk

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidGrid is returned by GlobalConfig.Validate
var ErrInvalidGrid = errors.New("invalid chunk grid")

// Coord identifies a chunk instance
type Coord struct {
	_msgpack struct{} `msgpack:",as_array"`
	X, Y     int
}

// C is shorthand for Coord{X: x, Y: y}
func C(x, y int) Coord {
	return Coord{X: x, Y: y}
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// GlobalConfig is the map description shared by server and clients.
// Both vectors hold whole numbers even though they are stored as floats.
type GlobalConfig struct {
	_msgpack        struct{} `msgpack:",as_array"`
	MapSizeChunks   Vec2     `yaml:"map_size_chunks"`
	SingleChunkSize Vec2     `yaml:"single_chunk_size"`
}

// DefaultGlobalConfig is a 10x10 map of 300 unit chunks
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		MapSizeChunks:   V(10, 10),
		SingleChunkSize: V(300, 300),
	}
}

// Validate checks that both vectors are positive whole numbers
func (g GlobalConfig) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"map_size_chunks.x", g.MapSizeChunks.X},
		{"map_size_chunks.y", g.MapSizeChunks.Y},
		{"single_chunk_size.x", g.SingleChunkSize.X},
		{"single_chunk_size.y", g.SingleChunkSize.Y},
	} {
		if f.v <= 0 || f.v != math.Trunc(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s = %v", ErrInvalidGrid, f.name, f.v)
		}
	}
	return nil
}

// MapSize returns the map extent in chunks
func (g GlobalConfig) MapSize() (int, int) {
	return int(g.MapSizeChunks.X), int(g.MapSizeChunks.Y)
}

// WorldSize returns the map extent in world units
func (g GlobalConfig) WorldSize() Vec2 {
	return g.MapSizeChunks.Mul(g.SingleChunkSize)
}

// PosToChunk returns the chunk instance containing pos. The result may be
// negative or beyond the map bounds.
func (g GlobalConfig) PosToChunk(pos Vec2) Coord {
	return Coord{
		X: int(math.Floor(pos.X / g.SingleChunkSize.X)),
		Y: int(math.Floor(pos.Y / g.SingleChunkSize.Y)),
	}
}

// PosToRealChunk returns the canonical chunk owning pos
func (g GlobalConfig) PosToRealChunk(pos Vec2) Coord {
	return g.ChunkToRealChunk(g.PosToChunk(pos))
}

// ChunkToRealChunk reduces a chunk instance onto the canonical chunk it wraps
func (g GlobalConfig) ChunkToRealChunk(c Coord) Coord {
	w, h := g.MapSize()
	return Coord{X: modi(c.X, w), Y: modi(c.Y, h)}
}

// ChunkToOffset returns the world-space origin of a chunk instance
func (g GlobalConfig) ChunkToOffset(c Coord) Vec2 {
	return V(float64(c.X), float64(c.Y)).Mul(g.SingleChunkSize)
}

// IsReal reports whether c is a canonical chunk
func (g GlobalConfig) IsReal(c Coord) bool {
	return g.ChunkToRealChunk(c) == c
}

// LocalPos returns pos relative to the origin of its chunk
func (g GlobalConfig) LocalPos(pos Vec2) Vec2 {
	return V(modf(pos.X, g.SingleChunkSize.X), modf(pos.Y, g.SingleChunkSize.Y))
}

// PlaceInChunk moves pos into chunk instance c keeping its local offset
func (g GlobalConfig) PlaceInChunk(pos Vec2, c Coord) Vec2 {
	return g.LocalPos(pos).Add(g.ChunkToOffset(c))
}

// WrapPos reduces pos into the canonical world rectangle
func (g GlobalConfig) WrapPos(pos Vec2) Vec2 {
	ws := g.WorldSize()
	return V(modf(pos.X, ws.X), modf(pos.Y, ws.Y))
}

// Neighbours returns the canonical chunks around c (8-neighbourhood,
// wrapped). Duplicates and c itself are left out, which matters on maps
// narrower than three chunks.
func (g GlobalConfig) Neighbours(c Coord) []Coord {
	c = g.ChunkToRealChunk(c)
	seen := map[Coord]struct{}{c: {}}
	out := make([]Coord, 0, 8)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			n := g.ChunkToRealChunk(C(c.X+dx, c.Y+dy))
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// RealChunks lists every canonical chunk in row-major order
func (g GlobalConfig) RealChunks() []Coord {
	w, h := g.MapSize()
	out := make([]Coord, 0, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out = append(out, C(x, y))
		}
	}
	return out
}
