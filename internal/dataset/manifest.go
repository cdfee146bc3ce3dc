package dataset

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/roach88/reachbench/internal/config"
)

// ManifestVersion is bumped when the on-disk layout changes.
const ManifestVersion = 1

// Manifest snapshots the configuration a dataset was generated from.
type Manifest struct {
	Version     int           `json:"version"`
	ID          string        `json:"id"`
	Config      config.Config `json:"config"`
	Seed        uint64        `json:"seed"`
	Cases       int           `json:"cases"`
	Fingerprint string        `json:"fingerprint"`
}

// FingerprintMismatchError reports a dataset generated from a different
// configuration than the one in use.
type FingerprintMismatchError struct {
	ID   string
	Want string
	Got  string
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("dataset %s was generated from a different configuration (fingerprint %s, want %s)",
		e.ID, short(e.Got), short(e.Want))
}

// IsFingerprintMismatch returns true if err is a FingerprintMismatchError.
func IsFingerprintMismatch(err error) bool {
	var fe *FingerprintMismatchError
	return errors.As(err, &fe)
}

func short(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

// Fingerprint hashes the identity of cfg, so configurations sharing an id
// share a fingerprint.
func Fingerprint(cfg config.Config) (string, error) {
	cfg = cfg.Identity()
	depths := make([]any, len(cfg.Depths))
	for i, d := range cfg.Depths {
		depths[i] = d
	}
	obj := map[string]any{
		"depths":              depths,
		"shuffle":             cfg.Shuffle,
		"identifier_strategy": string(cfg.IdentifierStrategy),
		"identifier_length":   cfg.IdentifierLength,
		"prompt_strategy":     cfg.PromptStrategy,
		"sample_size":         cfg.SampleSize,
		"padding":             cfg.Padding,
		"model":               cfg.Model,
	}

	canonical, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(fingerprintDomain, canonical), nil
}

// Verify checks that m was generated from cfg.
func (m Manifest) Verify(cfg config.Config) error {
	want, err := Fingerprint(cfg)
	if err != nil {
		return err
	}
	if m.Fingerprint != want {
		return &FingerprintMismatchError{ID: m.ID, Want: want, Got: m.Fingerprint}
	}
	return nil
}

func writeManifest(path string, m Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func readManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return Manifest{}, fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	return m, nil
}
