package queue

import "context"

// Job consumes one message type from the queue. Train and backfill jobs
// implement this and are registered on the queue at startup.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type this job is dispatched for.
	Type() string

	// Handle processes one dequeued payload. A returned error triggers
	// the queue's retry policy.
	Handle(ctx context.Context, payload interface{}) error
}
