package score

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reachbench/internal/prompt"
)

func TestCorrect(t *testing.T) {
	tests := []struct {
		verdict  prompt.Verdict
		expected bool
		want     bool
	}{
		{prompt.Affirmative, true, true},
		{prompt.Affirmative, false, false},
		{prompt.Negative, false, true},
		{prompt.Negative, true, false},
		{prompt.Unparseable, true, false},
		{prompt.Unparseable, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.verdict.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Correct(tt.verdict, tt.expected))
		})
	}
}

func sampleRow(answer string, correct bool) Result {
	return Result{
		Strategy:     "gpt-4o-2-false-natural-yes-no-1-4",
		PromptFile:   "prompts/2/yes/0.txt",
		AnswerFile:   "results/2/yes/0.txt",
		Source:       "m1",
		Target:       "m3",
		Depth:        2,
		Answer:       answer,
		Correct:      correct,
		InputTokens:  120,
		OutputTokens: 3,
	}
}

func TestAppendTableWritesHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")

	require.NoError(t, AppendTable(path, []Result{sampleRow("YES", true)}))
	require.NoError(t, AppendTable(path, []Result{sampleRow("NO", false), sampleRow("NA", false)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(Header, "\t"), lines[0])
	assert.Equal(t, "gpt-4o-2-false-natural-yes-no-1-4\tprompts/2/yes/0.txt\tresults/2/yes/0.txt\tm1\tm3\t2\tYES\ttrue\t120\t3", lines[1])
	assert.Equal(t, 1, strings.Count(string(data), "strategy\t"))
}

func TestAppendTableNeverRewritesRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")
	require.NoError(t, AppendTable(path, []Result{sampleRow("YES", true)}))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, AppendTable(path, []Result{sampleRow("NO", false)}))
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(after), string(before)))
}

func TestReadTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.tsv")
	rows := []Result{sampleRow("YES", true), sampleRow(ErrorAnswer, false)}
	require.NoError(t, AppendTable(path, rows))

	got, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestReadTableMissingIsEmpty(t *testing.T) {
	got, err := ReadTable(filepath.Join(t.TempDir(), "nope.tsv"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSummarize(t *testing.T) {
	s := Summarize([]Result{
		sampleRow("YES", true),
		sampleRow("NO", false),
		sampleRow("NA", false),
		sampleRow(ErrorAnswer, false),
	})
	assert.Equal(t, 4, s.Rows)
	assert.Equal(t, 1, s.Correct)
	assert.Equal(t, 1, s.Unparseable)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, Tokens{Input: 480, Output: 12}, s.Tokens)
	assert.Equal(t, 492, s.Tokens.Total())
	assert.InDelta(t, 0.25, s.Accuracy(), 1e-9)
	assert.Zero(t, Summary{}.Accuracy())
}

func TestWriteTranscript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results", "2", "yes", "0.txt")
	tr := Transcript{Prompt: "Does m1 call m3?", Answer: "Yes", Verdict: prompt.Affirmative}

	require.NoError(t, WriteTranscript(path, tr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PROMPT:\nDoes m1 call m3?\n\nANSWER:\nYes\n\nINTERPRETED AS:\nYES\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestWriteTranscriptOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.txt")
	require.NoError(t, WriteTranscript(path, Transcript{Prompt: "p", Answer: "a", Verdict: prompt.Unparseable}))
	require.NoError(t, WriteTranscript(path, Transcript{Prompt: "p", Answer: "No", Verdict: prompt.Negative}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "INTERPRETED AS:\nNO\n")
}
