package chain

import (
	"errors"
	"fmt"

	"github.com/roach88/reachbench/internal/ident"
)

// maxDraws bounds how often a random source is asked for a name that is not
// already part of the chain.
const maxDraws = 1000

// ErrExhausted is returned when an identifier source keeps repeating names
// that are already in the chain (for example one-letter names and a chain
// longer than the alphabet).
var ErrExhausted = errors.New("identifier source exhausted")

// Chain is an ordered sequence of unique identifiers.
// Element i calls element i+1; the last element calls nothing.
type Chain []string

// Build draws n unique identifiers from src in chain order.
func Build(src ident.Source, n int) (Chain, error) {
	if n < 1 {
		return nil, fmt.Errorf("build chain: length must be positive, got %d", n)
	}

	seen := make(map[string]bool, n)
	c := make(Chain, 0, n)
	for len(c) < n {
		id, ok := drawUnique(src, seen)
		if !ok {
			return nil, fmt.Errorf("build chain: %w after %d unique names", ErrExhausted, len(c))
		}
		seen[id] = true
		c = append(c, id)
	}
	return c, nil
}

func drawUnique(src ident.Source, seen map[string]bool) (string, bool) {
	for i := 0; i < maxDraws; i++ {
		id := src.Next()
		if !seen[id] {
			return id, true
		}
	}
	return "", false
}

// Index returns the position of id in the chain, or -1.
func (c Chain) Index(id string) int {
	for i, v := range c {
		if v == id {
			return i
		}
	}
	return -1
}

// Callee returns the procedure called by position i, if any.
func (c Chain) Callee(i int) (string, bool) {
	if i < 0 || i+1 >= len(c) {
		return "", false
	}
	return c[i+1], true
}

// Distance returns the number of forward hops from source to target.
// ok is false when either name is unknown or target does not follow source.
func (c Chain) Distance(source, target string) (hops int, ok bool) {
	s, t := c.Index(source), c.Index(target)
	if s < 0 || t < 0 || t <= s {
		return 0, false
	}
	return t - s, true
}

// Reachable reports whether target is reached by following calls from source.
func (c Chain) Reachable(source, target string) bool {
	_, ok := c.Distance(source, target)
	return ok
}
