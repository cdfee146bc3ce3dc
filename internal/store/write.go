package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/reachbench/internal/score"
)

// Run describes one live run or batch ingestion.
type Run struct {
	ID       string
	Seq      int64 // assigned by Record
	Dataset  string
	Mode     string // "live" | "batch"
	Model    string
	Protocol string
	Pending  int
	Skipped  int
	Dropped  int
	TimedOut bool
}

// Record writes run and its rows in one transaction. Rows are numbered by
// their position in rows; recording the same run again changes nothing.
func (s *Store) Record(ctx context.Context, run Run, rows []score.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, dataset, mode, model, protocol, pending, skipped, dropped, timed_out)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Dataset,
		run.Mode,
		run.Model,
		run.Protocol,
		run.Pending,
		run.Skipped,
		run.Dropped,
		boolToInt(run.TimedOut),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO results
		(run_id, seq, case_id, attempt, strategy, prompt_file, answer_file, source, target,
		 depth, expected, answer, correct, input_tokens, output_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("record results: %w", err)
	}
	defer stmt.Close()

	for i, r := range rows {
		if err := insertResult(ctx, stmt, run.ID, i+1, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

func insertResult(ctx context.Context, stmt *sql.Stmt, runID string, seq int, r score.Result) error {
	_, err := stmt.ExecContext(ctx,
		runID,
		seq,
		r.CaseID,
		r.Attempt,
		r.Strategy,
		r.PromptFile,
		r.AnswerFile,
		r.Source,
		r.Target,
		r.Depth,
		boolToInt(r.Expected),
		r.Answer,
		boolToInt(r.Correct),
		r.InputTokens,
		r.OutputTokens,
	)
	if err != nil {
		return fmt.Errorf("record result %d of run %s: %w", seq, runID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
