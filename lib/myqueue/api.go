package myqueue

import (
	"context"
)

// Task asks the queue to PUT Payload to TriggerPath after a short delay. Tasks with the
// same UID are only delivered once.
type Task struct {
	UID         string
	TriggerPath string
	Headers     map[string]string
	Payload     []byte
}

var New func(c context.Context) (TaskQueuer, func(), error)

//go:generate mockgen -source=api.go -package myqueue -destination queuer_mock.go TaskQueuer
type TaskQueuer interface {
	Enqueue(c context.Context, task Task) error
	// Attempts reports how often the task was dispatched and how often it may be. A
	// maximum of -1 means unknown.
	Attempts(c context.Context, taskUID string) (attempt int32, maxAttempts int32)
}
