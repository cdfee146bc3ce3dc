// Package runner drives dataset cases through a model and scores the
// replies.
//
// Live runs submit every unanswered case on a bounded worker pool. Batch
// runs split the same work in two: Produce writes one chat completion
// request per unanswered case to a JSONL document, and Ingest scores the
// provider's response document later.
//
// Both modes share the resumability contract: a case whose answer artifact
// exists is never submitted again, and result tables are only appended to.
package runner
