package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/score"
	"github.com/roach88/reachbench/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Bench BenchOptions
	Run   string
}

// ReportResult is the output of the report command.
type ReportResult struct {
	Dataset string         `json:"dataset"`
	Runs    int            `json:"runs"`
	Buckets []store.Bucket `json:"buckets"`
}

func (r ReportResult) String() string {
	if len(r.Buckets) == 0 {
		return fmt.Sprintf("No results recorded for %s", r.Dataset)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Dataset %s (%d runs)\n\n", r.Dataset, r.Runs)
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DEPTH\tEXPECTED\tANSWER\tCOUNT\tCORRECT\tTOKENS IN\tTOKENS OUT")

	var count, correct int
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%d\n",
			b.Depth, dataset.Label(b.Expected), b.Answer, b.Count, b.Correct, b.InputTokens, b.OutputTokens)
		count += b.Count
		correct += b.Correct
	}
	_ = tw.Flush()

	fmt.Fprintf(&sb, "\nAccuracy: %d/%d (%.1f%%)", correct, count, 100*float64(correct)/float64(count))
	return sb.String()
}

// RunRow is one recorded result in the --run listing.
type RunRow struct {
	Case         string `json:"case"`
	Attempt      int    `json:"attempt"`
	Depth        int    `json:"depth"`
	Expected     bool   `json:"expected"`
	Answer       string `json:"answer"`
	Correct      bool   `json:"correct"`
	AnswerFile   string `json:"answer_file"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// RunRowsResult is the output of report --run.
type RunRowsResult struct {
	Dataset string   `json:"dataset"`
	RunID   string   `json:"run_id"`
	Rows    []RunRow `json:"rows"`
}

func (r RunRowsResult) String() string {
	if len(r.Rows) == 0 {
		return fmt.Sprintf("No results recorded for run %s", r.RunID)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Run %s of %s\n\n", r.RunID, r.Dataset)
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CASE\tATTEMPT\tDEPTH\tEXPECTED\tANSWER\tCORRECT")
	for _, row := range r.Rows {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\t%t\n",
			row.Case, row.Attempt, row.Depth, dataset.Label(row.Expected), row.Answer, row.Correct)
	}
	_ = tw.Flush()
	return strings.TrimRight(sb.String(), "\n")
}

func runRows(results []score.Result) []RunRow {
	rows := make([]RunRow, len(results))
	for i, r := range results {
		rows[i] = RunRow{
			Case:         r.CaseID,
			Attempt:      r.Attempt,
			Depth:        r.Depth,
			Expected:     r.Expected,
			Answer:       r.Answer,
			Correct:      r.Correct,
			AnswerFile:   r.AnswerFile,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
		}
	}
	return rows
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Tabulate recorded results",
		Long: `Tabulate every recorded result of a dataset by depth, expected answer and
interpreted answer, from the dataset's ledger.

With --run, list the rows of a single run instead.

Example:
  reachbench report --config bench.yaml
  reachbench report --config bench.yaml --format json
  reachbench report --config bench.yaml --run 0192f3a4-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	addBenchFlags(cmd, &opts.Bench)
	cmd.Flags().StringVar(&opts.Run, "run", "", "list the rows of this run id")
	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions, cmd.ErrOrStderr())
	out := newPrinter(opts.RootOptions, cmd)

	_, ds, err := openDataset(&opts.Bench, cmd, out)
	if err != nil {
		return err
	}

	path := ds.Path(dataset.LedgerFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if opts.Run != "" {
			return out.Success(RunRowsResult{Dataset: ds.ID(), RunID: opts.Run, Rows: []RunRow{}})
		}
		return out.Success(ReportResult{Dataset: ds.ID(), Buckets: []store.Bucket{}})
	}

	ledger, err := store.Open(path)
	if err != nil {
		return out.Fail(runError(ErrCodeGeneric, "failed to open ledger", err))
	}
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil {
			slog.Error("error closing ledger", "error", closeErr)
		}
	}()

	ctx := commandContext(cmd)
	if opts.Run != "" {
		results, err := ledger.Results(ctx, opts.Run)
		if err != nil {
			return out.Fail(runError(ErrCodeGeneric, "failed to read run", err))
		}
		return out.Success(RunRowsResult{Dataset: ds.ID(), RunID: opts.Run, Rows: runRows(results)})
	}

	buckets, err := ledger.Tally(ctx, ds.ID())
	if err != nil {
		return out.Fail(runError(ErrCodeGeneric, "failed to tally results", err))
	}
	runs, err := ledger.Runs(ctx)
	if err != nil {
		return out.Fail(runError(ErrCodeGeneric, "failed to list runs", err))
	}

	return out.Success(ReportResult{Dataset: ds.ID(), Runs: len(runs), Buckets: buckets})
}
