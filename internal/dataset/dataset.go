package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/roach88/reachbench/internal/config"
)

var (
	// ErrExists is returned by Generate when a dataset for the configuration
	// id is already present. Nothing is written.
	ErrExists = errors.New("dataset already exists")

	// ErrNotFound is returned by Open when no dataset exists for the id.
	ErrNotFound = errors.New("dataset not found")
)

// Dataset is a generated, read-only set of cases.
type Dataset struct {
	Dir      string
	Manifest Manifest
	Cases    []Case

	index map[string]int
}

func newDataset(dir string, m Manifest, cases []Case) *Dataset {
	d := &Dataset{Dir: dir, Manifest: m, Cases: cases, index: make(map[string]int, len(cases))}
	for i, c := range cases {
		d.index[c.ID] = i
	}
	return d
}

// ID is the configuration id the dataset was generated under.
func (d *Dataset) ID() string {
	return d.Manifest.ID
}

// Open loads the dataset for cfg from root and checks that it was
// generated from the same configuration.
func Open(root string, cfg config.Config) (*Dataset, error) {
	id := cfg.ID()
	dir := Dir(root, id)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, dir)
	}

	m, err := readManifest(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", id, err)
	}
	if err := m.Verify(cfg); err != nil {
		return nil, err
	}

	cases, err := ReadGroundTruth(filepath.Join(dir, GroundTruthFile))
	if err != nil {
		return nil, fmt.Errorf("open dataset %s: %w", id, err)
	}
	if len(cases) != m.Cases {
		return nil, fmt.Errorf("open dataset %s: ground truth has %d cases, manifest records %d", id, len(cases), m.Cases)
	}
	return newDataset(dir, m, cases), nil
}
