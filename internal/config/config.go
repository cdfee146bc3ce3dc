// Package config holds the benchmark configuration and its deterministic id.
//
// A configuration fixes everything that shapes a dataset: depths, padding,
// naming and prompt strategies, sample size and target model. Its ID is the
// dataset's directory name and the guard that prevents a dataset from being
// generated twice. The random seed is recorded but never part of the id.
package config

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/reachbench/internal/chain"
	"github.com/roach88/reachbench/internal/ident"
	"github.com/roach88/reachbench/internal/prompt"
)

// Defaults applied before a config file or flags are read.
const (
	DefaultIdentifierLength = 8
	DefaultSampleSize       = 10
	DefaultPadding          = 1
)

// Config describes one benchmark dataset.
type Config struct {
	Depths             []int          `yaml:"depths" json:"depths"`
	Shuffle            bool           `yaml:"shuffle" json:"shuffle"`
	IdentifierStrategy ident.Strategy `yaml:"identifier_strategy" json:"identifier_strategy"`
	IdentifierLength   int            `yaml:"identifier_length" json:"identifier_length"`
	PromptStrategy     string         `yaml:"prompt_strategy" json:"prompt_strategy"`
	SampleSize         int            `yaml:"sample_size" json:"sample_size"`
	Padding            int            `yaml:"padding" json:"padding"`
	Model              string         `yaml:"model" json:"model"`

	// Seed makes generation reproducible. Zero means "pick one".
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`
}

// Default returns a config with every optional field filled in.
func Default() Config {
	return Config{
		IdentifierStrategy: ident.Natural,
		IdentifierLength:   DefaultIdentifierLength,
		PromptStrategy:     prompt.NameYesNo,
		SampleSize:         DefaultSampleSize,
		Padding:            DefaultPadding,
	}
}

var unsafeIDChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Identity returns c reduced to the values that name a dataset: the seed is
// cleared, identifier_length is cleared unless names are alphanumeric and
// the model is sanitized for use in a path. Configs with equal identities
// share an ID and a dataset.
func (c Config) Identity() Config {
	id := c
	id.Depths = slices.Clone(c.Depths)
	id.Seed = 0
	if id.IdentifierStrategy != ident.Alphanumeric {
		id.IdentifierLength = 0
	}
	id.Model = unsafeIDChars.ReplaceAllString(c.Model, "_")
	return id
}

// ID derives the dataset id from the identity.
//
// Format: model-depths-shuffle-naming-prompt-padding-samplesize, where depths
// are joined by "_" and naming carries the length for random names, e.g.
// gpt-4o-1_5_10-false-natural-yes-no-1-100.
func (c Config) ID() string {
	c = c.Identity()
	depths := make([]string, len(c.Depths))
	for i, d := range c.Depths {
		depths[i] = strconv.Itoa(d)
	}

	naming := string(c.IdentifierStrategy)
	if c.IdentifierStrategy == ident.Alphanumeric {
		naming += strconv.Itoa(c.IdentifierLength)
	}

	return fmt.Sprintf("%s-%s-%t-%s-%s-%d-%d",
		c.Model, strings.Join(depths, "_"), c.Shuffle, naming, c.PromptStrategy, c.Padding, c.SampleSize)
}

// Protocol resolves the configured prompt strategy.
func (c Config) Protocol() (prompt.Protocol, error) {
	return prompt.Lookup(c.PromptStrategy)
}

// SamplesPerDepth is the number of positive (and of negative) cases per depth.
func (c Config) SamplesPerDepth() int {
	return c.SampleSize / 2
}

// Validate checks the config against the CUE schema and the constraints
// the schema cannot express.
func (c Config) Validate() error {
	if err := checkSchema(c); err != nil {
		return err
	}

	seen := make(map[int]bool, len(c.Depths))
	for _, d := range c.Depths {
		if seen[d] {
			return fmt.Errorf("invalid config: depth %d listed twice", d)
		}
		seen[d] = true
		if err := chain.ValidateDepth(d, c.Padding); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}

	if c.IdentifierStrategy == ident.Alphanumeric && c.IdentifierLength < 1 {
		return fmt.Errorf("invalid config: alphanumeric identifiers need identifier_length >= 1")
	}
	if _, err := c.Protocol(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
