package dataset

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// File names inside a dataset directory.
const (
	GroundTruthFile  = "groundtruth.tsv"
	ManifestFile     = "manifest.json"
	ResultsFile      = "results.tsv"
	BatchFile        = "batch.jsonl"
	BatchResultsFile = "batch-results.tsv"
	LedgerFile       = "ledger.db"
	MetricsFile      = "metrics.prom"

	promptsDir = "prompts"
	resultsDir = "results"
)

// Dir returns the dataset directory for a configuration id.
func Dir(root, id string) string {
	return filepath.Join(root, id)
}

// Label is the directory name for an expected answer.
func Label(expected bool) string {
	if expected {
		return "yes"
	}
	return "no"
}

// CaseID formats <configID>_<depth>_<yes|no>_<i>.
func CaseID(configID string, depth int, expected bool, i int) string {
	return configID + "_" + strconv.Itoa(depth) + "_" + Label(expected) + "_" + strconv.Itoa(i)
}

// PromptFile is the relative prompt path for case i of a bucket.
func PromptFile(depth int, expected bool, i int) string {
	return filepath.ToSlash(filepath.Join(promptsDir, strconv.Itoa(depth), Label(expected), strconv.Itoa(i)+".txt"))
}

// ChainAllFile is the full-order trace next to a prompt file.
func ChainAllFile(promptFile string) string {
	return strings.TrimSuffix(promptFile, ".txt") + "-chain-all.txt"
}

// ChainFile is the between-trace next to a prompt file.
func ChainFile(promptFile string) string {
	return strings.TrimSuffix(promptFile, ".txt") + "-chain.txt"
}

// AnswerFile maps prompts/<d>/<l>/<i>.txt to results/<d>/<l>/<i>.txt.
func AnswerFile(promptFile string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(promptFile), promptsDir+"/")
	return resultsDir + "/" + rel
}

// Path resolves a table-relative path inside the dataset.
func (d *Dataset) Path(rel string) string {
	return filepath.Join(d.Dir, filepath.FromSlash(rel))
}

// Answered reports whether the answer artifact for c exists.
func (d *Dataset) Answered(c Case) bool {
	_, err := os.Stat(d.Path(c.AnswerFile()))
	return err == nil
}

// Pending returns the cases without an answer artifact, in table order.
func (d *Dataset) Pending() []Case {
	var out []Case
	for _, c := range d.Cases {
		if !d.Answered(c) {
			out = append(out, c)
		}
	}
	return out
}

// Prompt reads the prompt text of c.
func (d *Dataset) Prompt(c Case) (string, error) {
	data, err := os.ReadFile(d.Path(c.PromptFile))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Lookup finds a case by id.
func (d *Dataset) Lookup(id string) (Case, bool) {
	i, ok := d.index[id]
	if !ok {
		return Case{}, false
	}
	return d.Cases[i], true
}
