package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// LoadFile reads a config file on top of Default().
//
// .yaml/.yml files are decoded strictly (unknown keys are errors); .cue files
// are evaluated as a single top-level struct. Both are checked against the
// embedded schema. The result is not validated as a whole: flags may still
// override fields, so callers run Validate once everything is merged.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return decodeYAML(data)
	case ".cue":
		return decodeCUE(path, data)
	default:
		return Config{}, fmt.Errorf("unsupported config file extension %q (want .yaml, .yml or .cue)", ext)
	}
}

func decodeYAML(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

func decodeCUE(path string, data []byte) (Config, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return Config{}, err
	}

	file := ctx.CompileBytes(data, cue.Filename(path))
	if err := file.Err(); err != nil {
		return Config{}, fmt.Errorf("failed to parse CUE: %w", err)
	}
	// Fields the file leaves out stay incomplete here; only conflicts and
	// unknown fields are reported.
	if err := schema.Unify(file).Validate(); err != nil {
		return Config{}, fmt.Errorf("config does not match schema: %w", err)
	}

	raw, err := file.MarshalJSON()
	if err != nil {
		return Config{}, fmt.Errorf("failed to export CUE config: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode CUE config: %w", err)
	}
	return cfg, nil
}

func compileSchema(ctx *cue.Context) (cue.Value, error) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("compile config schema: %w", err)
	}
	def := v.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return cue.Value{}, fmt.Errorf("compile config schema: #Config not found")
	}
	return def, nil
}

// checkSchema encodes c and unifies it with #Config.
func checkSchema(c Config) error {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return err
	}

	v := schema.Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
