package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/metrics"
	"github.com/roach88/reachbench/internal/runner"
)

// BatchOptions holds flags for the batch subcommands.
type BatchOptions struct {
	*RootOptions
	Bench     BenchOptions
	BatchFile string

	// IDs overrides the run id generator (for testing).
	IDs runner.IDGenerator
}

// ProduceResult is the output of batch produce.
type ProduceResult struct {
	Dataset  string `json:"dataset"`
	Path     string `json:"path"`
	Requests int    `json:"requests"`
}

func (r ProduceResult) String() string {
	if r.Requests == 0 {
		return fmt.Sprintf("Nothing to submit for %s: every question is answered", r.Dataset)
	}
	return fmt.Sprintf("✓ Wrote %d requests to %s", r.Requests, r.Path)
}

// NewBatchCommand creates the batch command group.
func NewBatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Answer the dataset through the batch API",
		Long: `Exchange a dataset with the provider's batch API.

"produce" writes a JSONL request document holding one chat completion request
per unanswered question. Upload it, wait for the batch to finish and download
the output document; "ingest" then scores it exactly like a live run.`,
	}

	cmd.AddCommand(newBatchProduceCommand(&BatchOptions{RootOptions: rootOpts}))
	cmd.AddCommand(newBatchIngestCommand(&BatchOptions{RootOptions: rootOpts}))

	return cmd
}

func newBatchProduceCommand(opts *BatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "produce",
		Short: "Write the batch request document",
		Long: `Write one request per unanswered question to the batch document.

Relative --batch-file paths resolve inside the dataset directory.

Example:
  reachbench batch produce --config bench.yaml
  reachbench batch produce --config bench.yaml --batch-file /tmp/upload.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchProduce(opts, cmd)
		},
	}

	addBenchFlags(cmd, &opts.Bench)
	cmd.Flags().StringVar(&opts.BatchFile, "batch-file", dataset.BatchFile, "request document to write")
	return cmd
}

func runBatchProduce(opts *BatchOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := newPrinter(opts.RootOptions, cmd)

	cfg, ds, err := openDataset(&opts.Bench, cmd, out)
	if err != nil {
		return err
	}

	n, err := runner.Produce(ds, cfg.Model, opts.BatchFile)
	if err != nil {
		return out.Fail(runError(ErrCodeWriteFailed, "failed to write batch document", err))
	}

	path := opts.BatchFile
	if path == "" {
		path = dataset.BatchFile
	}
	return out.Success(ProduceResult{Dataset: ds.ID(), Path: path, Requests: n})
}

func newBatchIngestCommand(opts *BatchOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Score a batch response document",
		Long: `Score every entry of a downloaded batch response document.

Entries whose question is already answered are skipped. Malformed lines and
failed requests are recorded with answer "error" and do not stop ingestion.

Example:
  reachbench batch ingest --config bench.yaml --batch-file batch_output.jsonl`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatchIngest(opts, cmd)
		},
	}

	addBenchFlags(cmd, &opts.Bench)
	cmd.Flags().StringVar(&opts.BatchFile, "batch-file", "", "response document to score (required)")
	_ = cmd.MarkFlagRequired("batch-file")
	return cmd
}

func runBatchIngest(opts *BatchOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := newPrinter(opts.RootOptions, cmd)

	cfg, ds, err := openDataset(&opts.Bench, cmd, out)
	if err != nil {
		return err
	}
	protocol, err := cfg.Protocol()
	if err != nil {
		return out.Fail(usageError(ErrCodeInvalidConfig, "invalid configuration", err))
	}

	collector := metrics.New()
	in := &runner.Ingester{Protocol: protocol, Metrics: collector, IDs: opts.IDs}
	report, err := in.Ingest(ds, opts.BatchFile)
	if errors.Is(err, runner.ErrBatchNotFound) {
		return out.Fail(usageError(ErrCodeBatchNotFound, "batch response document not found", err))
	}
	// A failed read still scored the lines before it.
	if len(report.Rows) > 0 || err == nil {
		if recErr := record(commandContext(cmd), cfg, ds, report, collector); recErr != nil {
			return out.Fail(runError(ErrCodeWriteFailed, "failed to record run", recErr))
		}
	}
	if err != nil {
		return out.Fail(runError(ErrCodeWriteFailed, "failed to ingest batch", err))
	}

	return out.Success(newRunResult(ds, report))
}
