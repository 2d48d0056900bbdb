package queue

import (
	"context"
)

// HandlerFunc processes one task. Returning an error triggers a retry unless
// the error is permanent.
type HandlerFunc func(ctx context.Context, task *Task) error

// Queue is the task queue used by the service layer.
type Queue interface {
	Publish(ctx context.Context, task *Task) error
	Subscribe(ctx context.Context, handler HandlerFunc) error
	Close() error
}
