package ident

// Counter is a monotonic sequence owned by a single Source.
//
// The first call to Next returns 1. Counter is not safe for concurrent use;
// chain generation is sequential.
type Counter struct {
	seq int
}

// NewCounterAt creates a counter whose next value is start+1.
func NewCounterAt(start int) *Counter {
	return &Counter{seq: start}
}

// Next increments and returns the counter.
func (c *Counter) Next() int {
	c.seq++
	return c.seq
}
