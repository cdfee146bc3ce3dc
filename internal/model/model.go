// Package model submits prompts to a language model.
//
// The pipeline depends only on Client: a prompt goes in, reply text and
// token usage come out. Rate limiting is reported as *RateLimitError so the
// runner can back off; every other error is a plain transport failure.
package model

import (
	"context"
	"errors"
	"fmt"
)

// Reply is the model's answer to one prompt.
type Reply struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client submits a single prompt.
type Client interface {
	Submit(ctx context.Context, prompt string) (Reply, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt string) (Reply, error)

// Submit calls f.
func (f ClientFunc) Submit(ctx context.Context, prompt string) (Reply, error) {
	return f(ctx, prompt)
}

// RateLimitError signals that the endpoint refused the request because
// too many were sent.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	if e.Err == nil {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited returns true if err is a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
