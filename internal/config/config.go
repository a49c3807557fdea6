// Package config loads the onionmesh TOML configuration shared by every binary.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/SWAI-Ltd/onionmesh/internal/mesh"
)

const (
	defaultHost          = "127.0.0.1"
	defaultRegistryPort  = 8080
	defaultBaseRelayPort = 4000
	defaultBaseUserPort  = 3000
	defaultLogLevel      = "info"
	defaultLogFormat     = "text"
)

// Network describes where every endpoint listens.
type Network struct {
	Host          string
	RegistryPort  int
	BaseRelayPort int
	BaseUserPort  int
}

// Circuit controls circuit construction by users.
type Circuit struct {
	Length int
}

// Logging configures the slog handler.
type Logging struct {
	Level  string // debug, info, warn, error
	Format string // text or json
}

// Metrics exposes prometheus metrics on Address when set, e.g. ":6543".
type Metrics struct {
	Address string
}

// Discovery toggles mDNS announcement of relays.
type Discovery struct {
	Enable bool
}

// Config is the top-level configuration.
type Config struct {
	Network   Network
	Circuit   Circuit
	Logging   Logging
	Metrics   Metrics
	Discovery Discovery
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := new(Config)
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Network.Host == "" {
		cfg.Network.Host = defaultHost
	}
	if cfg.Network.RegistryPort == 0 {
		cfg.Network.RegistryPort = defaultRegistryPort
	}
	if cfg.Network.BaseRelayPort == 0 {
		cfg.Network.BaseRelayPort = defaultBaseRelayPort
	}
	if cfg.Network.BaseUserPort == 0 {
		cfg.Network.BaseUserPort = defaultBaseUserPort
	}
	if cfg.Circuit.Length == 0 {
		cfg.Circuit.Length = mesh.DefaultCircuitLength
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaultLogFormat
	}
}

// Validate checks the configuration after defaults are applied.
func (cfg *Config) Validate() error {
	for name, port := range map[string]int{
		"RegistryPort":  cfg.Network.RegistryPort,
		"BaseRelayPort": cfg.Network.BaseRelayPort,
		"BaseUserPort":  cfg.Network.BaseUserPort,
	} {
		if port < 0 || port > 65535 {
			return fmt.Errorf("config: Network.%s %d out of range", name, port)
		}
	}
	if cfg.Circuit.Length < 1 {
		return fmt.Errorf("config: Circuit.Length must be positive, got %d", cfg.Circuit.Length)
	}
	if _, err := parseLevel(cfg.Logging.Level); err != nil {
		return err
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: Logging.Format %q is not text or json", cfg.Logging.Format)
	}
	return nil
}

// Ports converts the network section into the mesh addressing scheme.
func (cfg *Config) Ports() mesh.Ports {
	return mesh.Ports{
		Host:          cfg.Network.Host,
		RegistryPort:  cfg.Network.RegistryPort,
		BaseRelayPort: cfg.Network.BaseRelayPort,
		BaseUserPort:  cfg.Network.BaseUserPort,
	}
}

// NewLogger builds a slog.Logger writing to w.
func (l Logging) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("config: Logging.Level: %w", err)
	}
	return level, nil
}

// Load parses and validates the provided buffer b as a config file body and
// returns the Config.
func Load(b []byte) (*Config, error) {
	if b == nil {
		return nil, errors.New("config: nil buffer")
	}
	cfg := new(Config)
	if _, err := toml.Decode(string(b), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads, parses and validates the provided file and returns the
// Config.
func LoadFile(f string) (*Config, error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return nil, err
	}
	return Load(b)
}
