package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/reachbench/internal/config"
	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/ident"
	"github.com/roach88/reachbench/internal/prompt"
)

// BenchOptions holds the flags that identify a dataset. Shared by every
// command.
type BenchOptions struct {
	ConfigFile string
	Root       string

	Depths             []int
	Shuffle            bool
	IdentifierStrategy string
	IdentifierLength   int
	PromptStrategy     string
	SampleSize         int
	Padding            int
	Model              string
	Seed               uint64
}

func addBenchFlags(cmd *cobra.Command, o *BenchOptions) {
	def := config.Default()
	f := cmd.Flags()

	f.StringVarP(&o.ConfigFile, "config", "c", "", "config file (.yaml, .yml or .cue); flags override its values")
	f.StringVar(&o.Root, "root", "datasets", "directory holding one subdirectory per dataset")

	f.IntSliceVar(&o.Depths, "depths", nil, "call chain depths, e.g. 1,5,25,50")
	f.BoolVar(&o.Shuffle, "shuffle", def.Shuffle, "shuffle method declarations in the snippet")
	f.StringVar(&o.IdentifierStrategy, "identifier-strategy", string(def.IdentifierStrategy),
		"method naming: "+strings.Join(strategyNames(), "|"))
	f.IntVar(&o.IdentifierLength, "identifier-length", def.IdentifierLength, "length of alphanumeric identifiers")
	f.StringVar(&o.PromptStrategy, "prompt-strategy", def.PromptStrategy,
		"prompt protocol: "+strings.Join(prompt.Names(), "|"))
	f.IntVar(&o.SampleSize, "sample-size", def.SampleSize, "questions per depth, split evenly between YES and NO")
	f.IntVar(&o.Padding, "padding", def.Padding, "methods added to the chain beyond the depth")
	f.StringVar(&o.Model, "model", def.Model, "model identifier")
	f.Uint64Var(&o.Seed, "seed", 0, "random seed for generation (0 picks one)")
}

func strategyNames() []string {
	names := make([]string, len(ident.Strategies))
	for i, s := range ident.Strategies {
		names[i] = string(s)
	}
	return names
}

// resolve builds the configuration: defaults, then the config file, then
// every flag set explicitly on the command line.
func (o *BenchOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()
	if o.ConfigFile != "" {
		loaded, err := config.LoadFile(o.ConfigFile)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("depths") {
		cfg.Depths = o.Depths
	}
	if f.Changed("shuffle") {
		cfg.Shuffle = o.Shuffle
	}
	if f.Changed("identifier-strategy") {
		s, err := ident.ParseStrategy(o.IdentifierStrategy)
		if err != nil {
			return config.Config{}, err
		}
		cfg.IdentifierStrategy = s
	}
	if f.Changed("identifier-length") {
		cfg.IdentifierLength = o.IdentifierLength
	}
	if f.Changed("prompt-strategy") {
		cfg.PromptStrategy = strings.ToLower(o.PromptStrategy)
	}
	if f.Changed("sample-size") {
		cfg.SampleSize = o.SampleSize
	}
	if f.Changed("padding") {
		cfg.Padding = o.Padding
	}
	if f.Changed("model") {
		cfg.Model = o.Model
	}
	if f.Changed("seed") {
		cfg.Seed = o.Seed
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openDataset resolves the configuration and opens its dataset, mapping
// failures to exit codes.
func openDataset(o *BenchOptions, cmd *cobra.Command, out *Printer) (config.Config, *dataset.Dataset, error) {
	cfg, err := o.resolve(cmd)
	if err != nil {
		return cfg, nil, out.Fail(usageError(ErrCodeInvalidConfig, "invalid configuration", err))
	}

	ds, err := dataset.Open(o.Root, cfg)
	switch {
	case errors.Is(err, dataset.ErrNotFound):
		return cfg, nil, out.Fail(usageError(ErrCodeDatasetNotFound,
			fmt.Sprintf("no dataset for %s; run generate first", cfg.ID()), err))
	case dataset.IsFingerprintMismatch(err):
		return cfg, nil, out.Fail(usageError(ErrCodeDatasetMismatch, "dataset does not match configuration", err))
	case err != nil:
		return cfg, nil, out.Fail(usageError(ErrCodeGeneric, "failed to open dataset", err))
	}
	return cfg, ds, nil
}
