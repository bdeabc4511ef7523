package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/they4kman/equationfinder/logging"
	"github.com/they4kman/equationfinder/simulation"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, *simulation.DefaultSimulationParams(), cfg.Simulation)
	assert.Equal(t, "text", cfg.Output.Format)
}

func TestDecode_OverlaysDefaults(t *testing.T) {
	cfg, err := Decode(strings.NewReader(`
[simulation]
population_size = 200
head_length = 7
operators = ["+", "-", "*", "/", "exp"]
seed = 42

[log]
level = "debug"
format = "json"

[output]
format = "yaml"
progress = true
`))
	require.NoError(t, err)

	defaults := simulation.DefaultSimulationParams()
	assert.Equal(t, 200, cfg.Simulation.PopulationSize)
	assert.Equal(t, 7, cfg.Simulation.HeadLength)
	assert.Equal(t, int64(42), cfg.Simulation.Seed)
	assert.Equal(t, []string{"+", "-", "*", "/", "exp"}, cfg.Simulation.Operators)
	assert.Equal(t, defaults.MutationProbability, cfg.Simulation.MutationProbability)
	assert.Equal(t, defaults.MaxEvaluations, cfg.Simulation.MaxEvaluations)
	assert.Equal(t, "yaml", cfg.Output.Format)
	assert.True(t, cfg.Output.Progress)

	logCfg := cfg.Logging(nil)
	assert.Equal(t, logging.LevelDebug, logCfg.Level)
	assert.Equal(t, logging.FormatJSON, logCfg.Format)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "[simulation]\npopulation = 10\n", "simulation.population"},
		{"invalid value", "[simulation]\nmating_ratio = 2.0\n", "MatingRatio"},
		{"bad level", "[log]\nlevel = \"loud\"\n", "loud"},
		{"syntax", "[simulation\n", "decoding config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.toml")
	require.NoError(t, os.WriteFile(path, []byte("[simulation]\nmax_generations = 3\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Simulation.MaxGenerations)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
