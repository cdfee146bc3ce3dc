package runner

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sashabaranov/go-openai"

	"github.com/roach88/reachbench/internal/dataset"
	"github.com/roach88/reachbench/internal/metrics"
	"github.com/roach88/reachbench/internal/model"
	"github.com/roach88/reachbench/internal/prompt"
	"github.com/roach88/reachbench/internal/score"
)

// ErrBatchNotFound is returned by Ingest when the response document does
// not exist. Nothing is written.
var ErrBatchNotFound = errors.New("batch response document not found")

// maxBatchLine bounds a single JSONL line.
const maxBatchLine = 16 << 20

// BatchRequest is one line of the outbound batch document.
type BatchRequest struct {
	CustomID string                       `json:"custom_id"`
	Method   string                       `json:"method"`
	URL      string                       `json:"url"`
	Body     openai.ChatCompletionRequest `json:"body"`
}

// BatchResponse is one line of the inbound batch document.
type BatchResponse struct {
	ID       string             `json:"id,omitempty"`
	CustomID string             `json:"custom_id"`
	Response *BatchReplyPayload `json:"response"`
	Error    *BatchError        `json:"error,omitempty"`
}

// BatchReplyPayload wraps the chat completion returned for one request.
type BatchReplyPayload struct {
	StatusCode int                           `json:"status_code"`
	RequestID  string                        `json:"request_id,omitempty"`
	Body       openai.ChatCompletionResponse `json:"body"`
}

// BatchError is a per-request failure reported by the provider.
type BatchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// resolve places a relative batch file name inside the dataset.
func resolve(ds *dataset.Dataset, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return ds.Path(name)
}

// Produce writes one request per unanswered case of ds to the batch
// document name (relative names resolve inside the dataset directory) and
// returns the number of requests written.
func Produce(ds *dataset.Dataset, modelName, name string) (int, error) {
	if name == "" {
		name = dataset.BatchFile
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	n := 0
	for _, c := range ds.Pending() {
		text, err := ds.Prompt(c)
		if err != nil {
			return 0, fmt.Errorf("case %s: %w", c.ID, err)
		}
		req := BatchRequest{
			CustomID: c.ID,
			Method:   http.MethodPost,
			URL:      model.ChatCompletionsURL,
			Body:     model.NewChatRequest(modelName, text),
		}
		if err := enc.Encode(req); err != nil {
			return 0, fmt.Errorf("case %s: %w", c.ID, err)
		}
		n++
	}

	path := resolve(ds, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("write batch document: %w", err)
	}
	slog.Info("batch document written", "dataset", ds.ID(), "path", path, "requests", n)
	return n, nil
}

// Ingester scores a batch response document.
type Ingester struct {
	Protocol prompt.Protocol
	Metrics  *metrics.Collector
	IDs      IDGenerator
}

// Ingest reads the response document name, scores every entry whose case
// has no answer artifact yet and appends the rows to batch-results.tsv.
//
// Malformed lines, unknown ids and failed requests are logged and recorded
// as rows with answer "error"; processing continues with the next line.
func (in *Ingester) Ingest(ds *dataset.Dataset, name string) (Report, error) {
	if in.Protocol == nil {
		return Report{}, fmt.Errorf("batch ingestion needs a protocol")
	}
	if name == "" {
		return Report{}, fmt.Errorf("%w: no document named", ErrBatchNotFound)
	}
	path := resolve(ds, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Report{}, fmt.Errorf("%w: %s", ErrBatchNotFound, path)
	}
	if err != nil {
		return Report{}, fmt.Errorf("open batch document: %w", err)
	}
	defer f.Close()

	report := Report{RunID: generatorOrDefault(in.IDs).Generate(), Mode: "batch"}
	slog.Info("ingesting batch", "run", report.RunID, "dataset", ds.ID(), "path", path)

	add := func(row score.Result) {
		if row.Answer == score.ErrorAnswer {
			report.Dropped++
		}
		report.Rows = append(report.Rows, row)
	}

	var readErr error
	r := bufio.NewReader(f)
	for line := 1; ; line++ {
		raw, oversized, err := readLine(r, maxBatchLine)
		switch {
		case oversized:
			slog.Error("batch line too long", "line", line, "limit", maxBatchLine)
			add(in.errorRow(ds, dataset.Case{}))
		case len(bytes.TrimSpace(raw)) > 0:
			if row, ok := in.ingestLine(ds, bytes.TrimSpace(raw), line); ok {
				add(row)
			} else {
				report.Skipped++
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			readErr = fmt.Errorf("read batch document: %w", err)
			break
		}
	}

	// Rows scored before a read failure already have answer files.
	out := ds.Path(dataset.BatchResultsFile)
	if err := score.AppendTable(out, report.Rows); err != nil {
		return report, err
	}
	if readErr != nil {
		return report, readErr
	}
	slog.Info("batch results written", "run", report.RunID, "path", out, "rows", len(report.Rows), "errors", report.Dropped)
	return report, nil
}

// ingestLine scores one response line. ok is false when the case is
// already answered.
func (in *Ingester) ingestLine(ds *dataset.Dataset, raw []byte, line int) (row score.Result, ok bool) {
	var resp BatchResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		slog.Error("malformed batch line", "line", line, "error", err)
		return in.errorRow(ds, dataset.Case{}), true
	}

	c, found := ds.Lookup(resp.CustomID)
	if !found {
		slog.Error("batch line has unknown case id", "line", line, "case", resp.CustomID)
		r := in.errorRow(ds, dataset.Case{})
		r.CaseID = resp.CustomID
		return r, true
	}
	if ds.Answered(c) {
		slog.Debug("case already answered, skipping", "case", c.ID, "line", line)
		return score.Result{}, false
	}

	reply, err := replyOf(resp)
	if err != nil {
		slog.Error("batch entry failed", "line", line, "case", c.ID, "prompt_file", c.PromptFile, "error", err)
		return in.errorRow(ds, c), true
	}

	text, err := ds.Prompt(c)
	if err != nil {
		slog.Error("cannot read prompt", "case", c.ID, "prompt_file", c.PromptFile, "error", err)
		return in.errorRow(ds, c), true
	}

	verdict := in.Protocol.Evaluate(reply.Text)
	row = resultFor(c, verdict, reply)
	row.Attempt = 1
	tr := score.Transcript{Prompt: text, Answer: reply.Text, Verdict: verdict}
	if err := score.WriteTranscript(ds.Path(row.AnswerFile), tr); err != nil {
		slog.Error("cannot write answer", "case", c.ID, "answer_file", row.AnswerFile, "error", err)
		return in.errorRow(ds, c), true
	}

	in.Metrics.Scored("batch", row)
	return row, true
}

// readLine reads one newline-terminated line. A line longer than limit is
// consumed whole and reported as oversized with no content.
func readLine(r *bufio.Reader, limit int) ([]byte, bool, error) {
	var line []byte
	oversized := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			if len(line)+len(chunk) > limit {
				oversized, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, oversized, err
	}
}

func replyOf(resp BatchResponse) (model.Reply, error) {
	if resp.Error != nil {
		return model.Reply{}, fmt.Errorf("%s: %s", resp.Error.Code, resp.Error.Message)
	}
	if resp.Response == nil {
		return model.Reply{}, fmt.Errorf("entry has no response")
	}
	if sc := resp.Response.StatusCode; sc != 0 && sc != http.StatusOK {
		return model.Reply{}, fmt.Errorf("request failed with status %d", sc)
	}
	return model.ReplyFromResponse(resp.Response.Body)
}

// errorRow is the sentinel row for an entry that could not be scored.
// Fields of c that are known are kept.
func (in *Ingester) errorRow(ds *dataset.Dataset, c dataset.Case) score.Result {
	r := score.Result{
		Strategy:   ds.ID(),
		PromptFile: c.PromptFile,
		Source:     c.Source,
		Target:     c.Target,
		Depth:      c.Depth,
		Answer:     score.ErrorAnswer,
		CaseID:     c.ID,
		Attempt:    1,
		Expected:   c.Expected,
	}
	if c.PromptFile != "" {
		r.AnswerFile = c.AnswerFile()
	}
	in.Metrics.Scored("batch", r)
	return r
}
