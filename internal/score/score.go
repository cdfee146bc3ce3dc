// Package score turns interpreted verdicts into result rows.
//
// Scoring is a pure function of the verdict and the expected answer.
// Aggregation only ever appends rows: a results table is never rewritten,
// so runs can be resumed and batch replies reconciled after the fact.
package score

import (
	"github.com/roach88/reachbench/internal/prompt"
)

// ErrorAnswer is written in the answer column of a row that could not be
// scored, e.g. a malformed batch reply.
const ErrorAnswer = "error"

// Correct reports whether verdict v matches the expected answer.
// Unparseable replies are never correct.
func Correct(v prompt.Verdict, expected bool) bool {
	switch v {
	case prompt.Affirmative:
		return expected
	case prompt.Negative:
		return !expected
	default:
		return false
	}
}

// Result is one scored attempt.
type Result struct {
	// Strategy is the configuration id the case was generated under.
	Strategy     string
	PromptFile   string
	AnswerFile   string
	Source       string
	Target       string
	Depth        int
	Answer       string
	Correct      bool
	InputTokens  int
	OutputTokens int

	// CaseID, Attempt and Expected are recorded in the ledger; they are
	// not part of the results table.
	CaseID   string
	Attempt  int
	Expected bool
}

// Tokens counts prompt and completion tokens.
type Tokens struct {
	Input  int
	Output int
}

// Add accumulates other into t.
func (t *Tokens) Add(other Tokens) {
	t.Input += other.Input
	t.Output += other.Output
}

// Total is Input + Output.
func (t Tokens) Total() int {
	return t.Input + t.Output
}

// Summary tallies a set of results.
type Summary struct {
	Rows        int
	Correct     int
	Unparseable int
	Errors      int
	Tokens      Tokens
}

// Summarize counts rows, correct answers and token usage.
func Summarize(rows []Result) Summary {
	var s Summary
	for _, r := range rows {
		s.Rows++
		if r.Correct {
			s.Correct++
		}
		switch r.Answer {
		case prompt.Unparseable.String():
			s.Unparseable++
		case ErrorAnswer:
			s.Errors++
		}
		s.Tokens.Add(Tokens{Input: r.InputTokens, Output: r.OutputTokens})
	}
	return s
}

// Accuracy is Correct/Rows, or zero for an empty summary.
func (s Summary) Accuracy() float64 {
	if s.Rows == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Rows)
}
