// Package config reads a run configuration from TOML. Keys left out of the
// file keep their defaults.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/they4kman/equationfinder/logging"
	"github.com/they4kman/equationfinder/simulation"
)

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type OutputConfig struct {
	// text, json or yaml
	Format string `toml:"format"`

	// Print a line per generation to stderr
	Progress bool `toml:"progress"`

	// Serve prometheus metrics on this address while searching. Empty disables.
	MetricsAddr string `toml:"metrics_addr"`
}

type Config struct {
	Simulation simulation.SimulationParams `toml:"simulation"`
	Log        LogConfig                   `toml:"log"`
	Output     OutputConfig                `toml:"output"`
}

func Default() *Config {
	return &Config{
		Simulation: *simulation.DefaultSimulationParams(),
		Log:        LogConfig{Level: "info", Format: "text"},
		Output:     OutputConfig{Format: "text"},
	}
}

// Decode overlays the TOML document read from r onto the defaults. Unknown
// keys are an error, so that a misspelled setting is not silently ignored.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// Logging converts the log section for logging.New
func (c *Config) Logging(w io.Writer) logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	format, _ := logging.ParseFormat(c.Log.Format)
	return logging.Config{Level: level, Format: format, Writer: w}
}
