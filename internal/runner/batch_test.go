package runner

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/model"
	"github.com/roach88/reachbench/internal/prompt"
	"github.com/roach88/reachbench/internal/score"
)

func readRequests(t *testing.T, path string) []BatchRequest {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var reqs []BatchRequest
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, maxBatchLine)
	for sc.Scan() {
		var req BatchRequest
		require.NoError(t, json.Unmarshal(sc.Bytes(), &req))
		reqs = append(reqs, req)
	}
	require.NoError(t, sc.Err())
	return reqs
}

func responseLine(t *testing.T, id, content string, in, out int) string {
	t.Helper()
	resp := BatchResponse{
		ID:       "batch_req_" + id,
		CustomID: id,
		Response: &BatchReplyPayload{
			StatusCode: 200,
			Body: openai.ChatCompletionResponse{
				ID: "chatcmpl-" + id,
				Choices: []openai.ChatCompletionChoice{
					{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
				},
				Usage: openai.Usage{PromptTokens: in, CompletionTokens: out},
			},
		},
	}
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func writeLines(t *testing.T, path string, lines []string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644))
}

func TestProduce(t *testing.T) {
	ds := newDataset(t)

	n, err := Produce(ds, "gpt-4o-mini", "")
	require.NoError(t, err)
	assert.Equal(t, len(ds.Cases), n)

	reqs := readRequests(t, ds.Path(dataset.BatchFile))
	require.Len(t, reqs, len(ds.Cases))
	for _, req := range reqs {
		c, ok := ds.Lookup(req.CustomID)
		require.True(t, ok, "custom_id %s is in the ground truth", req.CustomID)

		assert.Equal(t, "POST", req.Method)
		assert.Equal(t, "/v1/chat/completions", req.URL)
		assert.Equal(t, "gpt-4o-mini", req.Body.Model)
		require.Len(t, req.Body.Messages, 1)
		assert.Equal(t, "user", req.Body.Messages[0].Role)

		text, err := ds.Prompt(c)
		require.NoError(t, err)
		assert.Equal(t, text, req.Body.Messages[0].Content)
	}
}

func TestProduceWireFormat(t *testing.T) {
	ds := newDataset(t)
	_, err := Produce(ds, "gpt-4o-mini", "custom.jsonl")
	require.NoError(t, err)

	f, err := os.Open(ds.Path("custom.jsonl"))
	require.NoError(t, err)
	defer f.Close()
	sc := bufio.NewScanner(f)
	sc.Buffer(nil, maxBatchLine)
	require.True(t, sc.Scan())

	var line map[string]any
	require.NoError(t, json.Unmarshal(sc.Bytes(), &line))
	assert.Contains(t, line, "custom_id")
	body := line["body"].(map[string]any)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	msg := body["messages"].([]any)[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.NotEmpty(t, msg["content"])
}

func TestProduceSkipsAnsweredCases(t *testing.T) {
	ds := newDataset(t)
	c := ds.Cases[0]
	require.NoError(t, score.WriteTranscript(ds.Path(c.AnswerFile()), score.Transcript{}))

	n, err := Produce(ds, "m", "")
	require.NoError(t, err)
	assert.Equal(t, len(ds.Cases)-1, n)
	for _, req := range readRequests(t, ds.Path(dataset.BatchFile)) {
		assert.NotEqual(t, c.ID, req.CustomID)
	}
}

func TestBatchRoundTrip(t *testing.T) {
	ds := newDataset(t)
	_, err := Produce(ds, "gpt-4o-mini", "")
	require.NoError(t, err)

	var lines []string
	for _, req := range readRequests(t, ds.Path(dataset.BatchFile)) {
		c, _ := ds.Lookup(req.CustomID)
		answer := "NO"
		if c.Expected {
			answer = "YES"
		}
		lines = append(lines, responseLine(t, req.CustomID, answer, 50, 1))
	}
	writeLines(t, ds.Path("output.jsonl"), lines)

	in := &Ingester{Protocol: prompt.Direct{}, IDs: NewFixedGenerator("batch-1")}
	report, err := in.Ingest(ds, "output.jsonl")
	require.NoError(t, err)

	assert.Equal(t, "batch-1", report.RunID)
	require.Len(t, report.Rows, len(lines))
	for _, row := range report.Rows {
		c, ok := ds.Lookup(row.CaseID)
		require.True(t, ok)
		assert.True(t, row.Correct, row.CaseID)
		assert.Equal(t, c.Source, row.Source)
		assert.Equal(t, c.Target, row.Target)
		assert.Equal(t, 50, row.InputTokens)
		assert.True(t, ds.Answered(c))
	}

	rows, err := score.ReadTable(ds.Path(dataset.BatchResultsFile))
	require.NoError(t, err)
	assert.Len(t, rows, len(lines))
	assert.Empty(t, ds.Pending())
}

func TestIngestIsIdempotent(t *testing.T) {
	ds := newDataset(t)
	lines := []string{
		responseLine(t, ds.Cases[0].ID, "YES", 1, 1),
		responseLine(t, ds.Cases[1].ID, "NO", 1, 1),
	}
	writeLines(t, ds.Path("out.jsonl"), lines)

	in := &Ingester{Protocol: prompt.Direct{}}
	_, err := in.Ingest(ds, "out.jsonl")
	require.NoError(t, err)

	report, err := in.Ingest(ds, "out.jsonl")
	require.NoError(t, err)
	assert.Empty(t, report.Rows)
	assert.Equal(t, 2, report.Skipped)

	rows, err := score.ReadTable(ds.Path(dataset.BatchResultsFile))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestIngestMissingDocument(t *testing.T) {
	ds := newDataset(t)
	in := &Ingester{Protocol: prompt.Direct{}}

	_, err := in.Ingest(ds, "nope.jsonl")
	require.ErrorIs(t, err, ErrBatchNotFound)

	_, err = in.Ingest(ds, "")
	require.ErrorIs(t, err, ErrBatchNotFound)

	_, statErr := os.Stat(ds.Path(dataset.BatchResultsFile))
	assert.True(t, os.IsNotExist(statErr), "nothing is written")
}

func TestIngestDegradesBadLines(t *testing.T) {
	ds := newDataset(t)
	good := ds.Cases[0]
	failed := ds.Cases[1]

	lines := []string{
		`{"custom_id": "broken`,
		responseLine(t, "no-such-case", "YES", 1, 1),
		fmt.Sprintf(`{"custom_id": %q, "response": null, "error": {"code": "server_error", "message": "boom"}}`, failed.ID),
		responseLine(t, good.ID, "Yes", 7, 2),
	}
	writeLines(t, ds.Path("out.jsonl"), lines)

	report, err := (&Ingester{Protocol: prompt.Direct{}}).Ingest(ds, "out.jsonl")
	require.NoError(t, err)
	require.Len(t, report.Rows, 4)
	assert.Equal(t, 3, report.Dropped)

	assert.Equal(t, score.ErrorAnswer, report.Rows[0].Answer)
	assert.Equal(t, "no-such-case", report.Rows[1].CaseID)
	assert.Equal(t, score.ErrorAnswer, report.Rows[1].Answer)
	assert.Equal(t, failed.PromptFile, report.Rows[2].PromptFile)
	assert.Equal(t, score.ErrorAnswer, report.Rows[2].Answer)
	assert.False(t, ds.Answered(failed))

	last := report.Rows[3]
	assert.Equal(t, "YES", last.Answer)
	assert.Equal(t, good.Expected, last.Correct)
	assert.Equal(t, 7, last.InputTokens)
	assert.Equal(t, 2, last.OutputTokens)

	rows, err := score.ReadTable(ds.Path(dataset.BatchResultsFile))
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestIngestOversizedLine(t *testing.T) {
	ds := newDataset(t)
	first, last := ds.Cases[0], ds.Cases[1]

	lines := []string{
		responseLine(t, first.ID, "YES", 1, 1),
		`{"custom_id": "` + strings.Repeat("x", maxBatchLine) + `"}`,
		responseLine(t, last.ID, "NO", 1, 1),
	}
	writeLines(t, ds.Path("out.jsonl"), lines)

	report, err := (&Ingester{Protocol: prompt.Direct{}}).Ingest(ds, "out.jsonl")
	require.NoError(t, err)
	require.Len(t, report.Rows, 3)
	assert.Equal(t, 1, report.Dropped)

	assert.Equal(t, first.ID, report.Rows[0].CaseID)
	assert.Equal(t, score.ErrorAnswer, report.Rows[1].Answer)
	assert.Equal(t, last.ID, report.Rows[2].CaseID)
	assert.True(t, ds.Answered(first))
	assert.True(t, ds.Answered(last))

	rows, err := score.ReadTable(ds.Path(dataset.BatchResultsFile))
	require.NoError(t, err)
	assert.Len(t, rows, 3, "every answered case has a row")
}

func TestReadLine(t *testing.T) {
	r := bufio.NewReaderSize(strings.NewReader("short\n"+strings.Repeat("y", 40)+"\nlast"), 16)

	line, oversized, err := readLine(r, 32)
	require.NoError(t, err)
	assert.False(t, oversized)
	assert.Equal(t, "short\n", string(line))

	line, oversized, err = readLine(r, 32)
	require.NoError(t, err)
	assert.True(t, oversized)
	assert.Nil(t, line)

	line, oversized, err = readLine(r, 32)
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, oversized)
	assert.Equal(t, "last", string(line))
}

func TestIngestAbsolutePath(t *testing.T) {
	ds := newDataset(t)
	path := filepath.Join(t.TempDir(), "out.jsonl")
	writeLines(t, path, []string{responseLine(t, ds.Cases[0].ID, "NO", 1, 1)})

	report, err := (&Ingester{Protocol: prompt.Direct{}}).Ingest(ds, path)
	require.NoError(t, err)
	assert.Len(t, report.Rows, 1)
}

func TestReplyOf(t *testing.T) {
	_, err := replyOf(BatchResponse{CustomID: "x"})
	assert.ErrorContains(t, err, "no response")

	_, err = replyOf(BatchResponse{Response: &BatchReplyPayload{StatusCode: 500}})
	assert.ErrorContains(t, err, "status 500")

	_, err = replyOf(BatchResponse{Response: &BatchReplyPayload{StatusCode: 200}})
	assert.ErrorContains(t, err, "no choices")

	reply, err := replyOf(BatchResponse{Response: &BatchReplyPayload{Body: openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "NO"}}},
	}}})
	require.NoError(t, err)
	assert.Equal(t, model.Reply{Text: "NO"}, reply)
}
