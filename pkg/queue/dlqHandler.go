package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// ErrTaskNotFound is returned when a requeue names a task the DLQ does not hold.
var ErrTaskNotFound = errors.New("task not found in DLQ")

// DLQHandler handles failed tasks by moving them to Dead Letter Queue
type DLQHandler interface {
	HandleFailedTask(ctx context.Context, task *Task, err error)
	GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error)
	RequeueFailedTask(ctx context.Context, taskID string) error
	GetDLQStats(ctx context.Context) (*DLQStats, error)
}

type DefaultDLQHandler struct {
	client    *redis.Client
	dlq       string
	mainQueue string
}

// FailedTask represents a task that failed execution
type FailedTask struct {
	Task     *Task     `json:"task"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
	Attempts int       `json:"attempts"`
}

type DLQStats struct {
	OldestFailure time.Time `json:"oldest_failure"`
	NewestFailure time.Time `json:"newest_failure"`
	QueueSize     int64     `json:"queue_size"`
}

func NewDefaultDLQHandler(client *redis.Client, keys Keys) *DefaultDLQHandler {
	return &DefaultDLQHandler{
		client:    client,
		dlq:       keys.DLQ,
		mainQueue: keys.Main,
	}
}

// HandleFailedTask stores a failed task in the DLQ scored by failure time.
func (d *DefaultDLQHandler) HandleFailedTask(ctx context.Context, task *Task, err error) {
	failedTask := newFailedTask(task, err, time.Now())

	taskData, marshalErr := json.Marshal(failedTask)
	if marshalErr != nil {
		logrus.WithError(marshalErr).Error("Failed to marshal failed task")
		return
	}

	// the task context may already be cancelled during shutdown
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	score := float64(failedTask.FailedAt.UnixNano()) / 1e9
	if redisErr := d.client.ZAdd(ctx, d.dlq, &redis.Z{Score: score, Member: taskData}).Err(); redisErr != nil {
		logrus.WithError(redisErr).WithField("task_id", task.ID).Error("Failed to send task to DLQ")
		return
	}

	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempts":  task.Attempts,
	}).Warnf("Task moved to DLQ: %v", err)
}

func newFailedTask(task *Task, err error, at time.Time) *FailedTask {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &FailedTask{
		Task:     task,
		Error:    msg,
		FailedAt: at,
		Attempts: task.Attempts,
	}
}

// GetFailedTasks returns the newest failures first.
func (d *DefaultDLQHandler) GetFailedTasks(ctx context.Context, limit int) ([]*FailedTask, error) {
	if limit <= 0 {
		limit = 50
	}

	tasks, err := d.client.ZRevRangeByScore(ctx, d.dlq, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get failed tasks: %w", err)
	}

	failedTasks := make([]*FailedTask, 0, len(tasks))
	for _, taskData := range tasks {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(taskData), &failedTask); err != nil {
			logrus.WithError(err).Warn("Skipping unreadable DLQ entry")
			continue
		}
		failedTasks = append(failedTasks, &failedTask)
	}
	return failedTasks, nil
}

// RequeueFailedTask moves a failed task back to the main queue with its attempts reset.
func (d *DefaultDLQHandler) RequeueFailedTask(ctx context.Context, taskID string) error {
	entries, err := d.client.ZRange(ctx, d.dlq, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to get DLQ tasks: %w", err)
	}

	for _, entry := range entries {
		var failedTask FailedTask
		if err := json.Unmarshal([]byte(entry), &failedTask); err != nil || failedTask.Task == nil {
			continue
		}
		if failedTask.Task.ID != taskID {
			continue
		}

		failedTask.Task.Attempts = 0
		failedTask.Task.ExecuteAt = time.Now()
		taskData, err := json.Marshal(failedTask.Task)
		if err != nil {
			return fmt.Errorf("failed to marshal task for requeue: %w", err)
		}

		pipe := d.client.TxPipeline()
		pipe.LPush(ctx, d.mainQueue, taskData)
		pipe.ZRem(ctx, d.dlq, entry)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("failed to requeue task: %w", err)
		}

		logrus.WithField("task_id", taskID).Info("Task requeued from DLQ")
		return nil
	}

	return fmt.Errorf("task %s: %w", taskID, ErrTaskNotFound)
}

func (d *DefaultDLQHandler) GetDLQStats(ctx context.Context) (*DLQStats, error) {
	count, err := d.client.ZCard(ctx, d.dlq).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get DLQ count: %w", err)
	}

	stats := &DLQStats{QueueSize: count}
	if count == 0 {
		return stats, nil
	}

	oldest, err := d.client.ZRangeWithScores(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get oldest task: %w", err)
	}
	newest, err := d.client.ZRevRangeWithScores(ctx, d.dlq, 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get newest task: %w", err)
	}

	if len(oldest) > 0 {
		stats.OldestFailure = scoreTime(oldest[0].Score)
	}
	if len(newest) > 0 {
		stats.NewestFailure = scoreTime(newest[0].Score)
	}
	return stats, nil
}

func scoreTime(score float64) time.Time {
	return time.Unix(0, int64(score*1e9))
}
