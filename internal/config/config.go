// Package config loads the server configuration from YAML.
package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"rusteroids/internal/chunk"
	"rusteroids/internal/world"
)

//go:embed config.schema.json
var schemaJSON string

var schema = jsonschema.MustCompileString("config.schema.json", schemaJSON)

var ErrInvalid = errors.New("invalid config")

// Config is everything the server reads at startup
type Config struct {
	Listen       string             `yaml:"listen"`
	MaxClients   int                `yaml:"max_clients"`
	MaxPerIP     int                `yaml:"max_per_ip"`
	TickRate     int                `yaml:"tick_rate"`
	Map          chunk.GlobalConfig `yaml:"map"`
	Gameplay     world.Tuning       `yaml:"gameplay"`
	InputRate    float64            `yaml:"input_rate"` // messages per second
	InputBurst   int                `yaml:"input_burst"`
	PasswordHash string             `yaml:"password_hash"`
	TokenSecret  string             `yaml:"token_secret"`
	Journal      string             `yaml:"journal"`
	Motd         string             `yaml:"motd"`
}

// Defaults returns the configuration used when no file is given
func Defaults() Config {
	return Config{
		Listen:     ":8080",
		MaxClients: 16,
		MaxPerIP:   4,
		TickRate:   60,
		Map:        chunk.DefaultGlobalConfig(),
		Gameplay:   world.DefaultTuning(),
		InputRate:  120,
		InputBurst: 60,
		Motd:       "welcome to the belt",
	}
}

// TickInterval is the wall time of one simulation tick
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Load reads path on top of Defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	cfg, err = Parse(raw)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse validates raw YAML against the schema and decodes it over Defaults
func Parse(raw []byte) (Config, error) {
	cfg := Defaults()
	if err := validateSchema(raw); err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	cfg.Gameplay.InputDt = 1 / float64(cfg.TickRate)
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints the schema cannot express
func (c Config) Validate() error {
	if err := c.Map.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick_rate must be positive", ErrInvalid)
	}
	if c.MaxPerIP > c.MaxClients {
		return fmt.Errorf("%w: max_per_ip %d exceeds max_clients %d", ErrInvalid, c.MaxPerIP, c.MaxClients)
	}
	return nil
}

func validateSchema(raw []byte) error {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if doc == nil {
		return nil
	}
	// the validator wants plain JSON values
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.TrimSpace(err.Error()))
	}
	return nil
}
