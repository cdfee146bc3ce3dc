package ident

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// Strategy names an identifier naming policy.
type Strategy string

const (
	// Natural yields m1, m2, m3, ... in call order.
	Natural Strategy = "natural"
	// Alphanumeric yields random lowercase names of a fixed length.
	Alphanumeric Strategy = "alphanumeric"
)

// Strategies lists the supported naming policies in display order.
var Strategies = []Strategy{Natural, Alphanumeric}

// ParseStrategy resolves a strategy name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies {
		if strings.EqualFold(string(s), name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown identifier strategy %q: must be one of %v", name, Strategies)
}

// Source produces procedure identifiers for one chain.
type Source interface {
	// Next returns a fresh identifier. Random sources may repeat themselves;
	// uniqueness across a chain is enforced by the chain builder.
	Next() string
}

// New returns a Source for a single chain.
//
// length is only meaningful for Alphanumeric and must be positive there.
// rng drives random names and may be nil for Natural.
func New(s Strategy, length int, rng *rand.Rand) (Source, error) {
	switch s {
	case Natural:
		return &NaturalSource{counter: NewCounterAt(0)}, nil
	case Alphanumeric:
		if length < 1 {
			return nil, fmt.Errorf("alphanumeric identifiers need a positive length, got %d", length)
		}
		if rng == nil {
			return nil, fmt.Errorf("alphanumeric identifiers need a random source")
		}
		return &RandomSource{rng: rng, length: length}, nil
	default:
		return nil, fmt.Errorf("unknown identifier strategy %q", s)
	}
}

// NaturalSource yields m1, m2, m3, ...
type NaturalSource struct {
	counter *Counter
}

// Next returns the next mnemonic name.
func (s *NaturalSource) Next() string {
	return fmt.Sprintf("m%d", s.counter.Next())
}

const letters = "abcdefghijklmnopqrstuvwxyz"

// RandomSource yields random lowercase names of a fixed length.
// Names that collide with a reserved word of the rendered language are redrawn.
type RandomSource struct {
	rng    *rand.Rand
	length int
}

// Next returns a random name.
func (s *RandomSource) Next() string {
	for {
		b := make([]byte, s.length)
		for i := range b {
			b[i] = letters[s.rng.IntN(len(letters))]
		}
		name := string(b)
		if !reserved[name] {
			return name
		}
	}
}

// reserved holds the Java keywords and literals a random name could spell.
var reserved = map[string]bool{
	"abstract": true, "assert": true, "boolean": true, "break": true, "byte": true,
	"case": true, "catch": true, "char": true, "class": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true, "else": true,
	"enum": true, "extends": true, "false": true, "final": true, "finally": true,
	"float": true, "for": true, "goto": true, "if": true, "implements": true,
	"import": true, "instanceof": true, "int": true, "interface": true, "long": true,
	"native": true, "new": true, "null": true, "package": true, "private": true,
	"protected": true, "public": true, "return": true, "short": true, "static": true,
	"strictfp": true, "super": true, "switch": true, "synchronized": true, "this": true,
	"throw": true, "throws": true, "transient": true, "true": true, "try": true,
	"var": true, "void": true, "volatile": true, "while": true,
}

// IsReserved reports whether name is a keyword of the rendered language.
func IsReserved(name string) bool {
	return reserved[name]
}
