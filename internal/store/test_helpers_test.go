package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/reachbench/internal/score"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestResult creates a scored row for a case of depth d.
func createTestResult(caseID string, depth int, expected bool, answer string) score.Result {
	correct := (answer == "YES" && expected) || (answer == "NO" && !expected)
	return score.Result{
		Strategy:     "gpt-4o-1_2-false-natural-yes-no-1-4",
		PromptFile:   "prompts/1/yes/0.txt",
		AnswerFile:   "results/1/yes/0.txt",
		Source:       "m1",
		Target:       "m2",
		Depth:        depth,
		Answer:       answer,
		Correct:      correct,
		InputTokens:  10,
		OutputTokens: 2,
		CaseID:       caseID,
		Attempt:      1,
		Expected:     expected,
	}
}

func createTestRun(id, dataset string) Run {
	return Run{
		ID:       id,
		Dataset:  dataset,
		Mode:     "live",
		Model:    "gpt-4o",
		Protocol: "yes-no",
		Pending:  4,
	}
}
