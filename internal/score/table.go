package score

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Header is the first row of every results table.
var Header = []string{
	"strategy", "promptFile", "answerFile", "source", "target",
	"depth", "answer", "correct", "inputTokens", "outputTokens",
}

// Record renders r as a results table row.
func (r Result) Record() []string {
	return []string{
		r.Strategy,
		r.PromptFile,
		r.AnswerFile,
		r.Source,
		r.Target,
		strconv.Itoa(r.Depth),
		r.Answer,
		strconv.FormatBool(r.Correct),
		strconv.Itoa(r.InputTokens),
		strconv.Itoa(r.OutputTokens),
	}
}

// AppendTable appends rows to the results table at path, creating it with
// a header row when it does not exist or is empty. Existing rows are never
// touched.
func AppendTable(path string, rows []Result) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open results table: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat results table: %w", err)
	}

	w := newWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			f.Close()
			return fmt.Errorf("write results header: %w", err)
		}
	}
	for _, r := range rows {
		if err := w.Write(r.Record()); err != nil {
			f.Close()
			return fmt.Errorf("write result for %s: %w", r.PromptFile, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush results table: %w", err)
	}
	return f.Close()
}

// ReadTable reads every row of the results table at path. A missing table
// reads as empty.
func ReadTable(path string) ([]Result, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open results table: %w", err)
	}
	defer f.Close()

	r := newReader(f)
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read results header: %w", err)
	}
	if len(header) != len(Header) || header[0] != Header[0] {
		return nil, fmt.Errorf("%s: unexpected results header %v", path, header)
	}

	var rows []Result
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		row, err := parseRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		rows = append(rows, row)
	}
}

func parseRecord(rec []string) (Result, error) {
	depth, err := strconv.Atoi(rec[5])
	if err != nil {
		return Result{}, fmt.Errorf("depth: %w", err)
	}
	correct, err := strconv.ParseBool(rec[7])
	if err != nil {
		return Result{}, fmt.Errorf("correct: %w", err)
	}
	in, err := strconv.Atoi(rec[8])
	if err != nil {
		return Result{}, fmt.Errorf("inputTokens: %w", err)
	}
	out, err := strconv.Atoi(rec[9])
	if err != nil {
		return Result{}, fmt.Errorf("outputTokens: %w", err)
	}
	return Result{
		Strategy:     rec[0],
		PromptFile:   rec[1],
		AnswerFile:   rec[2],
		Source:       rec[3],
		Target:       rec[4],
		Depth:        depth,
		Answer:       rec[6],
		Correct:      correct,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

// newWriter and newReader configure encoding/csv for tab-separated tables.
func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	return cw
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = len(Header)
	return cr
}
