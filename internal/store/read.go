package store

import (
	"context"
	"fmt"

	"github.com/roach88/reachbench/internal/score"
)

// Bucket is one cell of the depth × expected × answer tabulation.
type Bucket struct {
	Depth        int    `json:"depth"`
	Expected     bool   `json:"expected"`
	Answer       string `json:"answer"`
	Count        int    `json:"count"`
	Correct      int    `json:"correct"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Tally groups every recorded result of dataset by depth, expected answer
// and interpreted answer. An empty dataset id tallies the whole ledger.
func (s *Store) Tally(ctx context.Context, dataset string) ([]Bucket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.depth, r.expected, r.answer, COUNT(*),
		       SUM(r.correct), SUM(r.input_tokens), SUM(r.output_tokens)
		FROM results r
		JOIN runs ON runs.id = r.run_id
		WHERE ? = '' OR runs.dataset = ?
		GROUP BY r.depth, r.expected, r.answer
		ORDER BY r.depth ASC, r.expected DESC, r.answer COLLATE BINARY ASC
	`, dataset, dataset)
	if err != nil {
		return nil, fmt.Errorf("query tally: %w", err)
	}
	defer rows.Close()

	buckets := []Bucket{}
	for rows.Next() {
		var b Bucket
		var expected int
		if err := rows.Scan(&b.Depth, &expected, &b.Answer, &b.Count, &b.Correct, &b.InputTokens, &b.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		b.Expected = expected == 1
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tally: %w", err)
	}
	return buckets, nil
}

// Runs lists recorded runs in seq order.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, dataset, mode, model, protocol, pending, skipped, dropped, timed_out
		FROM runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		var timedOut int
		if err := rows.Scan(&r.ID, &r.Seq, &r.Dataset, &r.Mode, &r.Model, &r.Protocol,
			&r.Pending, &r.Skipped, &r.Dropped, &timedOut); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.TimedOut = timedOut == 1
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Results returns the rows recorded for a run in emission order.
func (s *Store) Results(ctx context.Context, runID string) ([]score.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT case_id, attempt, strategy, prompt_file, answer_file, source, target,
		       depth, expected, answer, correct, input_tokens, output_tokens
		FROM results
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []score.Result{}
	for rows.Next() {
		var r score.Result
		var expected, correct int
		if err := rows.Scan(&r.CaseID, &r.Attempt, &r.Strategy, &r.PromptFile, &r.AnswerFile,
			&r.Source, &r.Target, &r.Depth, &expected, &r.Answer, &correct,
			&r.InputTokens, &r.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Expected = expected == 1
		r.Correct = correct == 1
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}
