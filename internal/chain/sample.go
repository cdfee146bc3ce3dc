package chain

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/reachbench/internal/ident"
)

// DepthError reports a depth/padding combination that cannot be sampled.
type DepthError struct {
	Depth   int
	Padding int
	Reason  string
}

func (e *DepthError) Error() string {
	return fmt.Sprintf("invalid depth %d with padding %d: %s", e.Depth, e.Padding, e.Reason)
}

// IsDepthError returns true if err is a DepthError.
func IsDepthError(err error) bool {
	var de *DepthError
	return errors.As(err, &de)
}

// ValidateDepth checks that both a positive and a negative case can be drawn
// from a chain of depth+padding elements.
//
// A positive case needs a start index in [0, padding); a negative case needs
// a target in the same window and a source at index padding. Both windows are
// empty when padding is zero, and depth zero asks about a procedure reaching
// itself.
func ValidateDepth(depth, padding int) error {
	if depth < 1 {
		return &DepthError{Depth: depth, Padding: padding, Reason: "depth must be at least 1"}
	}
	if padding < 1 {
		return &DepthError{Depth: depth, Padding: padding, Reason: "padding must be at least 1 so that source and target windows are non-empty"}
	}
	return nil
}

// Sample is one drawn (source, target) question over a chain.
type Sample struct {
	// Chain is the full identifier order, kept for audit.
	Chain Chain
	// Source and Target are the procedures asked about.
	Source string
	Target string
	// Depth is the exact forward distance for positive samples and the
	// sampling bucket for negative ones.
	Depth int
	// Expected is true when Target is reachable from Source.
	Expected bool
	// Between holds the identifiers strictly between Source and Target in
	// chain order.
	Between []string
}

// Positive draws a reachable pair at exact forward distance depth.
func Positive(c Chain, depth int, rng *rand.Rand) (Sample, error) {
	n := len(c)
	if err := ValidateDepth(depth, n-depth); err != nil {
		return Sample{}, err
	}

	r := rng.IntN(n - depth)
	return Sample{
		Chain:    c,
		Source:   c[r],
		Target:   c[r+depth],
		Depth:    depth,
		Expected: true,
		Between:  between(c, r, r+depth),
	}, nil
}

// Negative draws an unreachable pair for the depth bucket: the source has
// exactly depth elements after it and the target lies strictly before it.
func Negative(c Chain, depth int, rng *rand.Rand) (Sample, error) {
	n := len(c)
	if err := ValidateDepth(depth, n-depth); err != nil {
		return Sample{}, err
	}

	s := n - depth
	t := rng.IntN(s)
	return Sample{
		Chain:    c,
		Source:   c[s],
		Target:   c[t],
		Depth:    depth,
		Expected: false,
		Between:  between(c, t, s),
	}, nil
}

// between copies c[lo+1:hi].
func between(c Chain, lo, hi int) []string {
	out := make([]string, 0, hi-lo-1)
	return append(out, c[lo+1:hi]...)
}

// Generator draws fresh chains and samples for one configuration.
// Every call builds a new chain; nothing is reused across samples.
type Generator struct {
	Strategy         ident.Strategy
	IdentifierLength int
	Padding          int
	Shuffle          bool
	Rand             *rand.Rand
}

// Instance is a sample together with its rendered snippet.
type Instance struct {
	Sample
	Snippet string
}

// Generate builds a chain of depth+padding identifiers and draws a positive
// or negative sample from it.
func (g *Generator) Generate(depth int, positive bool) (Instance, error) {
	if err := ValidateDepth(depth, g.Padding); err != nil {
		return Instance{}, err
	}

	src, err := ident.New(g.Strategy, g.IdentifierLength, g.Rand)
	if err != nil {
		return Instance{}, err
	}
	c, err := Build(src, depth+g.Padding)
	if err != nil {
		return Instance{}, err
	}

	snippet := Snippet(c, g.Shuffle, g.Rand)

	var s Sample
	if positive {
		s, err = Positive(c, depth, g.Rand)
	} else {
		s, err = Negative(c, depth, g.Rand)
	}
	if err != nil {
		return Instance{}, err
	}
	return Instance{Sample: s, Snippet: snippet}, nil
}
