package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/reachbench/internal/dataset"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Bench BenchOptions
}

// GenerateResult is the output of the generate command.
type GenerateResult struct {
	ID      string `json:"id"`
	Dir     string `json:"dir"`
	Cases   int    `json:"cases"`
	Seed    uint64 `json:"seed,omitempty"`
	Skipped bool   `json:"skipped"`
}

func (r GenerateResult) String() string {
	if r.Skipped {
		return fmt.Sprintf("Dataset %s already exists, skipped", r.ID)
	}
	return fmt.Sprintf("✓ Generated %d cases in %s (seed %d)", r.Cases, r.Dir, r.Seed)
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the ground truth dataset",
		Long: `Generate the ground truth dataset for a configuration.

For every depth, sample-size/2 reachable and as many unreachable questions
are drawn, each on a freshly built call chain. The dataset is written to
<root>/<configuration id>/ exactly once: if it already exists nothing is
touched and the command succeeds.

Example:
  reachbench generate --depths 1,5,10 --padding 5 --sample-size 100 --model gpt-4o
  reachbench generate --config bench.yaml --seed 42`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, cmd)
		},
	}

	addBenchFlags(cmd, &opts.Bench)
	return cmd
}

func runGenerate(opts *GenerateOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := newPrinter(opts.RootOptions, cmd)

	cfg, err := opts.Bench.resolve(cmd)
	if err != nil {
		return out.Fail(usageError(ErrCodeInvalidConfig, "invalid configuration", err))
	}

	ds, err := dataset.Generate(opts.Bench.Root, cfg)
	if dataset.IsExists(err) {
		slog.Warn("dataset already exists, skipping generation", "dataset", cfg.ID())
		return out.Success(GenerateResult{
			ID:      cfg.ID(),
			Dir:     dataset.Dir(opts.Bench.Root, cfg.ID()),
			Skipped: true,
		})
	}
	if err != nil {
		return out.Fail(runError(ErrCodeWriteFailed, "failed to generate dataset", err))
	}

	return out.Success(GenerateResult{
		ID:    ds.ID(),
		Dir:   ds.Dir,
		Cases: len(ds.Cases),
		Seed:  ds.Manifest.Seed,
	})
}
