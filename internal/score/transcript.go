package score

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/reachbench/internal/prompt"
)

// Transcript is the human-readable answer artifact for one case.
type Transcript struct {
	Prompt  string
	Answer  string
	Verdict prompt.Verdict
}

// String renders the PROMPT, ANSWER and INTERPRETED AS sections.
func (t Transcript) String() string {
	var b strings.Builder
	b.WriteString("PROMPT:\n")
	b.WriteString(t.Prompt)
	b.WriteString("\n\nANSWER:\n")
	b.WriteString(t.Answer)
	b.WriteString("\n\nINTERPRETED AS:\n")
	b.WriteString(t.Verdict.String())
	b.WriteString("\n")
	return b.String()
}

// WriteTranscript writes t to path through a temporary file in the same
// directory, so the artifact either exists complete or not at all.
// Parent directories are created as needed.
func WriteTranscript(path string, t Transcript) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create answer directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create answer file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod answer file: %w", err)
	}
	if _, err := tmp.WriteString(t.String()); err != nil {
		tmp.Close()
		return fmt.Errorf("write answer file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close answer file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit answer file: %w", err)
	}
	return nil
}
