package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/reachbench/internal/chain"
	"github.com/roach88/reachbench/internal/config"
)

// Generate creates the dataset for cfg under root.
//
// For every depth it draws SamplesPerDepth positive cases and as many
// negative ones, each on a freshly built chain. If the dataset already
// exists Generate returns ErrExists and touches nothing. A zero cfg.Seed is
// replaced by a random one, which the manifest records.
func Generate(root string, cfg config.Config) (*Dataset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	protocol, err := cfg.Protocol()
	if err != nil {
		return nil, err
	}

	id := cfg.ID()
	dir := Dir(root, id)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrExists, dir)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create dataset root: %w", err)
	}

	seed := cfg.Seed
	for seed == 0 {
		seed = rand.Uint64()
	}
	cfg.Seed = seed
	rng := rand.New(rand.NewPCG(seed, ^seed))

	tmp, err := os.MkdirTemp(root, "."+id+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(tmp)
	if err := os.Chmod(tmp, 0755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	gen := &chain.Generator{
		Strategy:         cfg.IdentifierStrategy,
		IdentifierLength: cfg.IdentifierLength,
		Padding:          cfg.Padding,
		Shuffle:          cfg.Shuffle,
		Rand:             rng,
	}

	var cases []Case
	for _, depth := range cfg.Depths {
		for _, expected := range []bool{true, false} {
			for i := range cfg.SamplesPerDepth() {
				inst, err := gen.Generate(depth, expected)
				if err != nil {
					return nil, fmt.Errorf("generate depth %d case %d: %w", depth, i, err)
				}

				c := Case{
					ID:            CaseID(id, depth, expected, i),
					Configuration: id,
					PromptFile:    PromptFile(depth, expected, i),
					Source:        inst.Source,
					Target:        inst.Target,
					Depth:         inst.Depth,
					Expected:      inst.Expected,
				}
				text := protocol.Generate(inst.Snippet, inst.Source, inst.Target)
				if err := writeCase(tmp, c, text, inst.Sample); err != nil {
					return nil, err
				}
				cases = append(cases, c)
			}
		}
		slog.Debug("depth generated", "dataset", id, "depth", depth, "cases", 2*cfg.SamplesPerDepth())
	}

	if err := writeGroundTruthFile(filepath.Join(tmp, GroundTruthFile), cases); err != nil {
		return nil, err
	}

	fp, err := Fingerprint(cfg)
	if err != nil {
		return nil, err
	}
	m := Manifest{
		Version:     ManifestVersion,
		ID:          id,
		Config:      cfg,
		Seed:        seed,
		Cases:       len(cases),
		Fingerprint: fp,
	}
	if err := writeManifest(filepath.Join(tmp, ManifestFile), m); err != nil {
		return nil, err
	}

	if err := os.Rename(tmp, dir); err != nil {
		if _, statErr := os.Stat(dir); statErr == nil {
			return nil, fmt.Errorf("%w: %s", ErrExists, dir)
		}
		return nil, fmt.Errorf("commit dataset: %w", err)
	}

	slog.Info("dataset generated", "dataset", id, "cases", len(cases), "seed", seed, "dir", dir)
	return newDataset(dir, m, cases), nil
}

func writeCase(dir string, c Case, prompt string, s chain.Sample) error {
	files := []struct {
		rel     string
		content string
	}{
		{c.PromptFile, prompt},
		{c.ChainAllFile(), strings.Join(s.Chain, ",") + "\n"},
		{c.ChainFile(), strings.Join(s.Between, ",") + "\n"},
	}

	for _, f := range files {
		path := filepath.Join(dir, filepath.FromSlash(f.rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
		if err := os.WriteFile(path, []byte(f.content), 0644); err != nil {
			return fmt.Errorf("case %s: %w", c.ID, err)
		}
	}
	return nil
}

func writeGroundTruthFile(path string, cases []Case) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create ground truth: %w", err)
	}
	if err := WriteGroundTruth(f, cases); err != nil {
		f.Close()
		return fmt.Errorf("write ground truth: %w", err)
	}
	return f.Close()
}

// IsExists reports whether err is ErrExists.
func IsExists(err error) bool {
	return errors.Is(err, ErrExists)
}
