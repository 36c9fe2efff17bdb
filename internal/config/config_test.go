package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"rusteroids/internal/chunk"
)

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg != Defaults() {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
listen: ":9000"
tick_rate: 30
map:
  map_size_chunks: {x: 4, y: 6}
  single_chunk_size: {x: 200, y: 200}
gameplay:
  asteroid_target: 5
motd: hi
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9000" || cfg.Motd != "hi" {
		t.Errorf("strings not applied: %+v", cfg)
	}
	if cfg.Map.MapSizeChunks != chunk.V(4, 6) || cfg.Map.SingleChunkSize != chunk.V(200, 200) {
		t.Errorf("map not applied: %+v", cfg.Map)
	}
	if cfg.Gameplay.AsteroidTarget != 5 {
		t.Errorf("expected asteroid target 5, got %d", cfg.Gameplay.AsteroidTarget)
	}
	if cfg.Gameplay.PickupDropChance != Defaults().Gameplay.PickupDropChance {
		t.Error("unset gameplay keys should keep their defaults")
	}
	if cfg.TickInterval() != time.Second/30 {
		t.Errorf("unexpected tick interval %v", cfg.TickInterval())
	}
	if cfg.Gameplay.InputDt != 1.0/30 {
		t.Errorf("input impulse should follow the tick rate, got %f", cfg.Gameplay.InputDt)
	}
}

func TestParseRejectsSchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "bogus: 1\n"},
		{"fractional chunks", "map:\n  map_size_chunks: {x: 2.5, y: 3}\n"},
		{"zero chunk size", "map:\n  single_chunk_size: {x: 0, y: 10}\n"},
		{"drop chance above one", "gameplay:\n  pickup_drop_chance: 2\n"},
		{"wrong type", "max_clients: lots\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseRejectsCrossFieldErrors(t *testing.T) {
	_, err := Parse([]byte("max_clients: 2\nmax_per_ip: 3\n"))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestExampleConfigIsValid(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("..", "..", "configs", "server.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(raw); err != nil {
		t.Errorf("example config rejected: %v", err)
	}
}
