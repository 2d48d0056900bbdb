package service

import (
	"context"

	"github.com/ds124wfegd/WB_L3/catering/pkg/queue"
)

// QueueAdapter adapts queue.Queue to TaskPublisher.
type QueueAdapter struct {
	queue queue.Queue
}

func NewQueueAdapter(q queue.Queue) *QueueAdapter {
	return &QueueAdapter{queue: q}
}

func (a *QueueAdapter) Publish(ctx context.Context, task *Task) error {
	if a == nil || a.queue == nil {
		return nil
	}

	return a.queue.Publish(ctx, &queue.Task{
		ID:         task.ID,
		Type:       queue.TaskType(task.Type),
		Data:       task.Data,
		ExecuteAt:  task.ExecuteAt,
		MaxRetries: task.MaxRetries,
	})
}
