package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reachbench/internal/ident"
)

func validConfig() Config {
	cfg := Default()
	cfg.Depths = []int{1, 5, 10}
	cfg.Model = "gpt-4o-mini"
	cfg.SampleSize = 100
	cfg.Padding = 3
	return cfg
}

func TestIDIsDeterministic(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "gpt-4o-mini-1_5_10-false-natural-yes-no-3-100", cfg.ID())

	cfg.Seed = 99
	assert.Equal(t, "gpt-4o-mini-1_5_10-false-natural-yes-no-3-100", cfg.ID(), "seed is not part of the id")
}

func TestIdentity(t *testing.T) {
	cfg := validConfig()
	cfg.Model = "org/gpt 4o"
	cfg.IdentifierLength = 5
	cfg.Seed = 7

	id := cfg.Identity()
	assert.Equal(t, "org_gpt_4o", id.Model)
	assert.Zero(t, id.IdentifierLength, "length does not shape natural names")
	assert.Zero(t, id.Seed)
	assert.Equal(t, cfg.ID(), id.ID())

	id.Depths[0] = 99
	assert.Equal(t, 1, cfg.Depths[0], "identity owns its depths")

	cfg.IdentifierStrategy = ident.Alphanumeric
	assert.Equal(t, 5, cfg.Identity().IdentifierLength)
}

func TestIDCoversEveryField(t *testing.T) {
	base := validConfig()
	mutations := map[string]func(*Config){
		"depths":   func(c *Config) { c.Depths = []int{1, 5} },
		"shuffle":  func(c *Config) { c.Shuffle = true },
		"naming":   func(c *Config) { c.IdentifierStrategy = ident.Alphanumeric },
		"prompt":   func(c *Config) { c.PromptStrategy = "sycophancy" },
		"padding":  func(c *Config) { c.Padding = 4 },
		"samples":  func(c *Config) { c.SampleSize = 50 },
		"model":    func(c *Config) { c.Model = "gpt-4o" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := base
			cfg.Depths = append([]int(nil), base.Depths...)
			mutate(&cfg)
			assert.NotEqual(t, base.ID(), cfg.ID())
		})
	}
}

func TestIDIncludesLengthForRandomNames(t *testing.T) {
	cfg := validConfig()
	cfg.IdentifierStrategy = ident.Alphanumeric
	cfg.IdentifierLength = 12
	assert.Contains(t, cfg.ID(), "-alphanumeric12-")
}

func TestIDSanitizesModel(t *testing.T) {
	cfg := validConfig()
	cfg.Model = "openai/gpt 4o"
	assert.NotContains(t, cfg.ID(), "/")
	assert.NotContains(t, cfg.ID(), " ")
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"no depths", func(c *Config) { c.Depths = nil }, "invalid config"},
		{"zero depth", func(c *Config) { c.Depths = []int{0} }, "invalid config"},
		{"duplicate depth", func(c *Config) { c.Depths = []int{2, 2} }, "listed twice"},
		{"zero padding", func(c *Config) { c.Padding = 0 }, "invalid config"},
		{"tiny sample", func(c *Config) { c.SampleSize = 1 }, "invalid config"},
		{"empty model", func(c *Config) { c.Model = "" }, "invalid config"},
		{"unknown prompt", func(c *Config) { c.PromptStrategy = "socratic" }, "invalid config"},
		{"unknown naming", func(c *Config) { c.IdentifierStrategy = "hex" }, "invalid config"},
		{"random names without length", func(c *Config) {
			c.IdentifierStrategy = ident.Alphanumeric
			c.IdentifierLength = 0
		}, "identifier_length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSamplesPerDepth(t *testing.T) {
	cfg := validConfig()
	cfg.SampleSize = 7
	assert.Equal(t, 3, cfg.SamplesPerDepth())
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	content := `
depths: [1, 2, 4]
shuffle: true
identifier_strategy: alphanumeric
identifier_length: 6
prompt_strategy: step-by-step
sample_size: 20
padding: 2
model: gpt-4o
seed: 7
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 4}, cfg.Depths)
	assert.True(t, cfg.Shuffle)
	assert.Equal(t, ident.Alphanumeric, cfg.IdentifierStrategy)
	assert.Equal(t, 6, cfg.IdentifierLength)
	assert.Equal(t, "step-by-step", cfg.PromptStrategy)
	assert.Equal(t, uint64(7), cfg.Seed)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yml")
	require.NoError(t, os.WriteFile(path, []byte("depths: [3]\nmodel: gpt-4o\n"), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, ident.Natural, cfg.IdentifierStrategy)
	assert.Equal(t, DefaultSampleSize, cfg.SampleSize)
	assert.Equal(t, DefaultPadding, cfg.Padding)
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("depths: [1]\ndepht: 3\n"), 0644))

	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadCUE(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench.cue")
	content := `
depths: [2, 8]
model: "gpt-4o"
prompt_strategy: "sycophancy"
padding: 4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 8}, cfg.Depths)
	assert.Equal(t, "sycophancy", cfg.PromptStrategy)
	assert.Equal(t, 4, cfg.Padding)
	assert.Equal(t, DefaultSampleSize, cfg.SampleSize, "unset fields keep their defaults")
	require.NoError(t, cfg.Validate())
}

func TestLoadCUERejectsSchemaViolations(t *testing.T) {
	tests := map[string]string{
		"unknown field": "depths: [1]\ncolour: \"red\"\n",
		"bad prompt":    "prompt_strategy: \"socratic\"\n",
		"zero depth":    "depths: [0]\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bench.cue")
			require.NoError(t, os.WriteFile(path, []byte(content), 0644))

			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "does not match schema")
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")

	path := filepath.Join(t.TempDir(), "bench.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))
	_, err = LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file extension")
}
