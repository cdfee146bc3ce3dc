package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

var groundTruthHeader = []string{"id", "configuration", "promptFile", "source", "target", "depth", "groundtruth"}

// Case is one generated question.
type Case struct {
	ID            string
	Configuration string
	PromptFile    string
	Source        string
	Target        string
	Depth         int
	Expected      bool
}

// ChainAllFile is the relative path of the full-order trace.
func (c Case) ChainAllFile() string { return ChainAllFile(c.PromptFile) }

// ChainFile is the relative path of the between-trace.
func (c Case) ChainFile() string { return ChainFile(c.PromptFile) }

// AnswerFile is the relative path of the answer artifact.
func (c Case) AnswerFile() string { return AnswerFile(c.PromptFile) }

func groundTruthLabel(expected bool) string {
	if expected {
		return "YES"
	}
	return "NO"
}

// WriteGroundTruth writes the header and one row per case.
func WriteGroundTruth(w io.Writer, cases []Case) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(groundTruthHeader); err != nil {
		return err
	}
	for _, c := range cases {
		rec := []string{
			c.ID, c.Configuration, c.PromptFile, c.Source, c.Target,
			strconv.Itoa(c.Depth), groundTruthLabel(c.Expected),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadGroundTruth reads a ground-truth table.
func ReadGroundTruth(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ground truth: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = len(groundTruthHeader)

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read ground truth header: %w", err)
	}
	if !slices.Equal(header, groundTruthHeader) {
		return nil, fmt.Errorf("%s: unexpected header %v", path, header)
	}

	var cases []Case
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return cases, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}

		depth, err := strconv.Atoi(rec[5])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: depth: %w", path, line, err)
		}
		var expected bool
		switch rec[6] {
		case "YES":
			expected = true
		case "NO":
		default:
			return nil, fmt.Errorf("%s:%d: groundtruth must be YES or NO, got %q", path, line, rec[6])
		}

		cases = append(cases, Case{
			ID:            rec[0],
			Configuration: rec[1],
			PromptFile:    rec[2],
			Source:        rec[3],
			Target:        rec[4],
			Depth:         depth,
			Expected:      expected,
		})
	}
}
