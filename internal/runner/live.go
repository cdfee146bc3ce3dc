package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/metrics"
	"github.com/roach88/reachbench/internal/model"
	"github.com/roach88/reachbench/internal/prompt"
	"github.com/roach88/reachbench/internal/score"
)

// MaxRateLimitRetries bounds how often one attempt is resubmitted after a
// rate limit signal.
const MaxRateLimitRetries = 1

// Defaults for Live.
const (
	DefaultRetries     = 1
	DefaultConcurrency = 4
	DefaultCooldown    = 60 * time.Second
	DefaultTimeout     = 24 * time.Hour
)

// Live submits cases to a model synchronously.
type Live struct {
	Client   model.Client
	Protocol prompt.Protocol

	// Retries is the number of independent attempts per case.
	Retries int
	// Concurrency bounds in-flight submissions.
	Concurrency int
	// Cooldown is the wait after a rate limit signal.
	Cooldown time.Duration
	// Timeout bounds the whole run.
	Timeout time.Duration

	Metrics *metrics.Collector
	IDs     IDGenerator
}

// Report summarizes one live run or batch ingestion.
type Report struct {
	RunID string
	Mode  string
	// Rows holds the emitted rows in completion order.
	Rows []score.Result
	// Pending is the number of unanswered cases when the run started.
	Pending int
	// Skipped counts cases answered by someone else during the run, or
	// batch entries whose artifact already existed.
	Skipped int
	// Dropped counts attempts that produced no row.
	Dropped  int
	TimedOut bool
}

// Summary tallies the report's rows.
func (r Report) Summary() score.Summary {
	return score.Summarize(r.Rows)
}

func (l *Live) withDefaults() Live {
	cfg := *l
	if cfg.Retries <= 0 {
		cfg.Retries = DefaultRetries
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.IDs = generatorOrDefault(cfg.IDs)
	return cfg
}

// Run submits every unanswered case of ds and appends the produced rows to
// the dataset's results table once all attempts have finished or the
// timeout has passed.
func (l *Live) Run(ctx context.Context, ds *dataset.Dataset) (Report, error) {
	if l.Client == nil || l.Protocol == nil {
		return Report{}, fmt.Errorf("live run needs a client and a protocol")
	}
	cfg := l.withDefaults()

	report := Report{RunID: cfg.IDs.Generate(), Mode: "live"}
	pending := ds.Pending()
	report.Pending = len(pending)
	slog.Info("live run starting",
		"run", report.RunID,
		"dataset", ds.ID(),
		"pending", len(pending),
		"attempts", len(pending)*cfg.Retries,
		"concurrency", cfg.Concurrency)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		written sync.Map
		g       errgroup.Group
	)
	g.SetLimit(cfg.Concurrency)

schedule:
	for _, c := range pending {
		for attempt := 1; attempt <= cfg.Retries; attempt++ {
			if ctx.Err() != nil {
				break schedule
			}
			g.Go(func() error {
				row, outcome := cfg.attempt(ctx, ds, c, attempt, &written)
				mu.Lock()
				defer mu.Unlock()
				switch outcome {
				case outcomeScored:
					report.Rows = append(report.Rows, row)
				case outcomeSkipped:
					report.Skipped++
				default:
					report.Dropped++
				}
				return nil
			})
		}
	}
	_ = g.Wait()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		report.TimedOut = true
		slog.Warn("live run timed out, writing completed results", "run", report.RunID, "timeout", cfg.Timeout)
	}

	if err := score.AppendTable(ds.Path(dataset.ResultsFile), report.Rows); err != nil {
		return report, err
	}
	slog.Info("results written",
		"run", report.RunID,
		"path", ds.Path(dataset.ResultsFile),
		"rows", len(report.Rows),
		"dropped", report.Dropped)
	return report, nil
}

type outcome int

const (
	outcomeDropped outcome = iota
	outcomeScored
	outcomeSkipped
)

// attempt submits one case once. Artifacts written by this run are
// tracked in written so that repeated attempts of a case are not mistaken
// for answers from another process.
func (l *Live) attempt(ctx context.Context, ds *dataset.Dataset, c dataset.Case, n int, written *sync.Map) (score.Result, outcome) {
	if _, ours := written.Load(c.ID); !ours && ds.Answered(c) {
		slog.Info("case already answered, skipping", "case", c.ID)
		return score.Result{}, outcomeSkipped
	}

	text, err := ds.Prompt(c)
	if err != nil {
		slog.Error("attempt dropped: cannot read prompt", "case", c.ID, "prompt_file", c.PromptFile, "error", err)
		l.Metrics.Dropped()
		return score.Result{}, outcomeDropped
	}

	slog.Debug("submitting", "case", c.ID, "prompt_file", c.PromptFile, "attempt", n)
	reply, err := l.submit(ctx, c, text)
	if err != nil {
		slog.Error("attempt dropped", "case", c.ID, "prompt_file", c.PromptFile, "attempt", n, "error", err)
		l.Metrics.Dropped()
		return score.Result{}, outcomeDropped
	}

	verdict := l.Protocol.Evaluate(reply.Text)
	row := resultFor(c, verdict, reply)
	row.Attempt = n

	written.Store(c.ID, true)
	tr := score.Transcript{Prompt: text, Answer: reply.Text, Verdict: verdict}
	if err := score.WriteTranscript(ds.Path(row.AnswerFile), tr); err != nil {
		slog.Error("attempt dropped: cannot write answer", "case", c.ID, "answer_file", row.AnswerFile, "error", err)
		l.Metrics.Dropped()
		return score.Result{}, outcomeDropped
	}

	slog.Info("case scored",
		"case", c.ID,
		"attempt", n,
		"answer", row.Answer,
		"correct", row.Correct,
		"input_tokens", row.InputTokens,
		"output_tokens", row.OutputTokens)
	l.Metrics.Scored("live", row)
	return row, outcomeScored
}

// submit sends text, waiting Cooldown and resubmitting at most
// MaxRateLimitRetries times while the endpoint signals a rate limit.
func (l *Live) submit(ctx context.Context, c dataset.Case, text string) (model.Reply, error) {
	for retry := 0; ; retry++ {
		start := time.Now()
		reply, err := l.Client.Submit(ctx, text)
		l.Metrics.Submitted(time.Since(start), err)
		if err == nil {
			return reply, nil
		}
		if !model.IsRateLimited(err) || retry >= MaxRateLimitRetries {
			return model.Reply{}, err
		}

		l.Metrics.RateLimited()
		slog.Warn("rate limited, cooling down", "case", c.ID, "cooldown", l.Cooldown, "retry", retry+1)
		if err := sleep(ctx, l.Cooldown); err != nil {
			return model.Reply{}, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// resultFor builds the row for case c; the strategy column is the
// configuration id.
func resultFor(c dataset.Case, v prompt.Verdict, reply model.Reply) score.Result {
	return score.Result{
		Strategy:     c.Configuration,
		PromptFile:   c.PromptFile,
		AnswerFile:   c.AnswerFile(),
		Source:       c.Source,
		Target:       c.Target,
		Depth:        c.Depth,
		Answer:       v.String(),
		Correct:      score.Correct(v, c.Expected),
		InputTokens:  reply.InputTokens,
		OutputTokens: reply.OutputTokens,
		CaseID:       c.ID,
		Expected:     c.Expected,
	}
}
