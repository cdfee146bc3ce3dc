package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/reachbench/internal/config"
	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/metrics"
	"github.com/roach88/reachbench/internal/model"
	"github.com/roach88/reachbench/internal/runner"
	"github.com/roach88/reachbench/internal/store"
)

// ModelOptions holds the flags for reaching the model endpoint.
type ModelOptions struct {
	Token   string
	BaseURL string
	RPS     float64
}

func addModelFlags(cmd *cobra.Command, o *ModelOptions) {
	cmd.Flags().StringVar(&o.Token, "token", "", "API token (default $OPENAI_API_KEY)")
	cmd.Flags().StringVar(&o.BaseURL, "base-url", "", "API base URL (default $OPENAI_BASE_URL or the public API)")
	cmd.Flags().Float64Var(&o.RPS, "rps", 0, "maximum requests per second (0 means unpaced)")
}

func (o ModelOptions) client(modelName string) (model.Client, error) {
	token := o.Token
	if token == "" {
		token = os.Getenv("OPENAI_API_KEY")
	}
	baseURL := o.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	c, err := model.NewOpenAIClient(model.OpenAIConfig{
		Token:             token,
		BaseURL:           baseURL,
		Model:             modelName,
		RequestsPerSecond: o.RPS,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Bench BenchOptions
	Model ModelOptions

	Retries     int
	Concurrency int
	Cooldown    time.Duration
	Timeout     time.Duration

	// Client overrides the OpenAI client (for testing).
	Client model.Client
	// IDs overrides the run id generator (for testing).
	IDs runner.IDGenerator
}

// RunResult is the output of the run and batch ingest commands.
type RunResult struct {
	RunID        string  `json:"run_id"`
	Dataset      string  `json:"dataset"`
	Mode         string  `json:"mode"`
	Pending      int     `json:"pending,omitempty"`
	Rows         int     `json:"rows"`
	Correct      int     `json:"correct"`
	Unparseable  int     `json:"unparseable"`
	Errors       int     `json:"errors"`
	Accuracy     float64 `json:"accuracy"`
	Skipped      int     `json:"skipped"`
	Dropped      int     `json:"dropped"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TimedOut     bool    `json:"timed_out,omitempty"`
}

func newRunResult(ds *dataset.Dataset, r runner.Report) RunResult {
	s := r.Summary()
	return RunResult{
		RunID:        r.RunID,
		Dataset:      ds.ID(),
		Mode:         r.Mode,
		Pending:      r.Pending,
		Rows:         s.Rows,
		Correct:      s.Correct,
		Unparseable:  s.Unparseable,
		Errors:       s.Errors,
		Accuracy:     s.Accuracy(),
		Skipped:      r.Skipped,
		Dropped:      r.Dropped,
		InputTokens:  s.Tokens.Input,
		OutputTokens: s.Tokens.Output,
		TimedOut:     r.TimedOut,
	}
}

func (r RunResult) String() string {
	s := fmt.Sprintf("Run %s (%s): %d rows, %d correct (%.1f%%), %d unparseable, %d skipped, %d dropped, tokens in/out %d/%d",
		r.RunID, r.Mode, r.Rows, r.Correct, 100*r.Accuracy, r.Unparseable, r.Skipped, r.Dropped, r.InputTokens, r.OutputTokens)
	if r.TimedOut {
		s += " (timed out)"
	}
	return s
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer the dataset against the live API",
		Long: `Submit every unanswered question of a dataset to the model.

Questions whose answer file already exists are skipped, so an interrupted
run can simply be started again. A rate limited request waits --cooldown
and is retried once; other failures drop that attempt. Results are appended
to results.tsv and recorded in the dataset's ledger.

Example:
  reachbench run --config bench.yaml --concurrency 8
  reachbench run --depths 1,5 --padding 5 --sample-size 100 --model gpt-4o --retries 3`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLive(opts, cmd)
		},
	}

	addBenchFlags(cmd, &opts.Bench)
	addModelFlags(cmd, &opts.Model)
	cmd.Flags().IntVar(&opts.Retries, "retries", runner.DefaultRetries, "how many times to ask each question")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", runner.DefaultConcurrency, "requests in flight at once")
	cmd.Flags().IntVar(&opts.Concurrency, "threads", runner.DefaultConcurrency, "alias for --concurrency")
	_ = cmd.Flags().MarkHidden("threads")
	cmd.Flags().DurationVar(&opts.Cooldown, "cooldown", runner.DefaultCooldown, "wait after a rate limit signal")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", runner.DefaultTimeout, "upper bound for the whole run")

	return cmd
}

func runLive(opts *RunOptions, cmd *cobra.Command) error {
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

	client := opts.Client
	if client == nil {
		client, err = opts.Model.client(cfg.Model)
		if err != nil {
			return out.Fail(usageError(ErrCodeModel, "failed to create model client", err))
		}
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.New()
	live := &runner.Live{
		Client:      client,
		Protocol:    protocol,
		Retries:     opts.Retries,
		Concurrency: opts.Concurrency,
		Cooldown:    opts.Cooldown,
		Timeout:     opts.Timeout,
		Metrics:     collector,
		IDs:         opts.IDs,
	}

	report, err := live.Run(ctx, ds)
	if err != nil {
		return out.Fail(runError(ErrCodeWriteFailed, "failed to write results", err))
	}
	if err := record(ctx, cfg, ds, report, collector); err != nil {
		return out.Fail(runError(ErrCodeWriteFailed, "failed to record run", err))
	}

	return out.Success(newRunResult(ds, report))
}

// record writes a finished run to the ledger and its metrics next to it.
func record(ctx context.Context, cfg config.Config, ds *dataset.Dataset, report runner.Report, collector *metrics.Collector) error {
	ledger, err := store.Open(ds.Path(dataset.LedgerFile))
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	run := store.Run{
		ID:       report.RunID,
		Dataset:  ds.ID(),
		Mode:     report.Mode,
		Model:    cfg.Model,
		Protocol: cfg.PromptStrategy,
		Pending:  report.Pending,
		Skipped:  report.Skipped,
		Dropped:  report.Dropped,
		TimedOut: report.TimedOut,
	}
	// The run's own context may have expired; the ledger write must not.
	if err := ledger.Record(context.WithoutCancel(ctx), run, report.Rows); err != nil {
		return err
	}
	slog.Debug("run recorded", "run", report.RunID, "ledger", ds.Path(dataset.LedgerFile))

	return collector.WriteTextfile(ds.Path(dataset.MetricsFile))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
