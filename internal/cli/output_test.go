package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterJSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{JSON: true, Out: buf}

	err := p.Success(ProduceResult{Dataset: "ds", Path: "batch.jsonl", Requests: 3})
	require.NoError(t, err)

	var resp struct {
		Status string        `json:"status"`
		Data   ProduceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Requests)
}

func TestPrinterJSONFail(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{JSON: true, Out: buf}

	err := p.Fail(usageError(ErrCodeDatasetNotFound, "no dataset", errors.New("datasets/x")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E003", resp.Error.Code)
	assert.Equal(t, "no dataset", resp.Error.Message)
	assert.Equal(t, "datasets/x", resp.Error.Details)
}

func TestPrinterTextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	p := &Printer{Out: buf}

	err := p.Success(ProduceResult{Dataset: "ds", Path: "batch.jsonl", Requests: 3})
	require.NoError(t, err)
	assert.Equal(t, "✓ Wrote 3 requests to batch.jsonl\n", buf.String())
}

func TestPrinterTextFail(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			diag := &bytes.Buffer{}
			p := &Printer{Out: buf, Diag: diag, Verbose: tt.verbose}
			cause := errors.New("disk full")

			err := p.Fail(runError(ErrCodeWriteFailed, "failed to write results", cause))
			require.Error(t, err)
			assert.ErrorIs(t, err, cause)
			assert.Equal(t, ExitFailure, ExitCode(err))
			assert.True(t, Reported(err))
			assert.Equal(t, "failed to write results: disk full", err.Error())
			assert.Equal(t, "Error [E007]: failed to write results\n", buf.String())
			if tt.wantDetails {
				assert.Equal(t, "Details: disk full\n", diag.String())
			} else {
				assert.Empty(t, diag.String())
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("x"), ExitFailure},
		{"usage error", usageError(ErrCodeGeneric, "bad", nil), ExitCommandError},
		{"run error", runError(ErrCodeGeneric, "bad", nil), ExitFailure},
		{"wrapped usage error", fmt.Errorf("outer: %w", usageError(ErrCodeGeneric, "bad", errors.New("x"))), ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestReported(t *testing.T) {
	assert.False(t, Reported(nil))
	assert.False(t, Reported(errors.New("x")))
	assert.False(t, Reported(usageError(ErrCodeGeneric, "bad", nil)))

	err := (&Printer{Out: &bytes.Buffer{}}).Fail(usageError(ErrCodeGeneric, "bad", nil))
	assert.True(t, Reported(fmt.Errorf("outer: %w", err)))
}

func TestResultStrings(t *testing.T) {
	assert.Equal(t, "Dataset d already exists, skipped", GenerateResult{ID: "d", Skipped: true}.String())
	assert.Equal(t, "✓ Generated 8 cases in datasets/d (seed 7)", GenerateResult{ID: "d", Dir: "datasets/d", Cases: 8, Seed: 7}.String())
	assert.Equal(t, "Nothing to submit for d: every question is answered", ProduceResult{Dataset: "d"}.String())
	assert.Equal(t, "No results recorded for d", ReportResult{Dataset: "d"}.String())
	assert.Equal(t, "No results recorded for run r", RunRowsResult{Dataset: "d", RunID: "r"}.String())

	r := RunResult{RunID: "r", Mode: "live", Rows: 4, Correct: 3, Accuracy: 0.75, Unparseable: 1, TimedOut: true}
	assert.Equal(t, "Run r (live): 4 rows, 3 correct (75.0%), 1 unparseable, 0 skipped, 0 dropped, tokens in/out 0/0 (timed out)", r.String())
}
