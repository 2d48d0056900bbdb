package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/config"
	"github.com/ds124wfegd/WB_L3/catering/internal/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries   = 3
	defaultBaseDelay    = 5 * time.Second
	defaultPollEvery    = 10 * time.Second
	defaultQueueTimeout = 5 * time.Second
	defaultDLQThreshold = 1000
)

// Keys names the Redis structures backing one queue.
type Keys struct {
	Main       string
	Delayed    string
	Processing string
	DLQ        string
}

func KeysFor(prefix string) Keys {
	if prefix == "" {
		prefix = "catering"
	}
	return Keys{
		Main:       prefix + ":tasks",
		Delayed:    prefix + ":tasks:delayed",
		Processing: prefix + ":tasks:processing",
		DLQ:        prefix + ":dlq",
	}
}

// RedisQueueConfig contains configuration for RedisQueue
type RedisQueueConfig struct {
	Prefix       string
	MaxRetries   int
	BaseDelay    time.Duration
	PollEvery    time.Duration
	QueueTimeout time.Duration
	DLQThreshold int64
}

func DefaultRedisQueueConfig() *RedisQueueConfig {
	return &RedisQueueConfig{
		Prefix:       "catering",
		MaxRetries:   defaultMaxRetries,
		BaseDelay:    defaultBaseDelay,
		PollEvery:    defaultPollEvery,
		QueueTimeout: defaultQueueTimeout,
		DLQThreshold: defaultDLQThreshold,
	}
}

// ConfigFrom fills the queue settings from the application config, keeping
// defaults for anything left unset.
func ConfigFrom(c config.QueueConfig) *RedisQueueConfig {
	cfg := DefaultRedisQueueConfig()
	if c.Prefix != "" {
		cfg.Prefix = c.Prefix
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = c.MaxRetries
	}
	if c.BaseDelay > 0 {
		cfg.BaseDelay = c.BaseDelay
	}
	if c.PollEvery > 0 {
		cfg.PollEvery = c.PollEvery
	}
	return cfg
}

// RedisQueue implements Queue on a Redis list for ready tasks and a sorted
// set for delayed ones.
type RedisQueue struct {
	client       *redis.Client
	keys         Keys
	retryManager *RetryManager
	dlqHandler   DLQHandler
	config       *RedisQueueConfig
	mu           sync.Mutex
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

// NewRedisQueue uses an existing client. Closing the queue leaves the client open.
func NewRedisQueue(client *redis.Client, cfg *RedisQueueConfig, retryManager *RetryManager, dlqHandler DLQHandler) (*RedisQueue, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg == nil {
		cfg = DefaultRedisQueueConfig()
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = defaultQueueTimeout
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = defaultPollEvery
	}

	keys := KeysFor(cfg.Prefix)
	if retryManager == nil {
		retryManager = NewRetryManager(cfg.MaxRetries, cfg.BaseDelay)
	}
	if dlqHandler == nil {
		dlqHandler = NewDefaultDLQHandler(client, keys)
	}

	q := &RedisQueue{
		client:       client,
		keys:         keys,
		retryManager: retryManager,
		dlqHandler:   dlqHandler,
		config:       cfg,
		stopChan:     make(chan struct{}),
	}

	logrus.WithFields(logrus.Fields{
		"main":    keys.Main,
		"delayed": keys.Delayed,
		"dlq":     keys.DLQ,
	}).Info("RedisQueue initialized")
	return q, nil
}

// Publish sends a task to the queue
func (r *RedisQueue) Publish(ctx context.Context, task *Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	now := time.Now()
	if err := r.prepareTask(task, now); err != nil {
		return fmt.Errorf("invalid task: %w", err)
	}

	taskData, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ExecuteAt.After(now) {
		err = r.client.ZAdd(ctx, r.keys.Delayed, &redis.Z{
			Score:  score(task.ExecuteAt),
			Member: taskData,
		}).Err()
		if err != nil {
			return fmt.Errorf("failed to publish delayed task: %w", err)
		}
		logrus.WithFields(logrus.Fields{
			"task_id":    task.ID,
			"task_type":  task.Type,
			"execute_at": task.ExecuteAt.Format(time.RFC3339),
		}).Debug("Task scheduled")
		return nil
	}

	if err := r.client.LPush(ctx, r.keys.Main, taskData).Err(); err != nil {
		return fmt.Errorf("failed to publish immediate task: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
	}).Debug("Task published to main queue")
	return nil
}

// Subscribe starts consuming tasks until ctx is done or Close is called.
func (r *RedisQueue) Subscribe(ctx context.Context, handler HandlerFunc) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	r.wg.Add(3)
	go r.processDelayedTasks(ctx)
	go r.processMainQueue(ctx, handler)
	go r.monitorQueue(ctx)

	logrus.Info("RedisQueue subscriber started")
	return nil
}

func (r *RedisQueue) processMainQueue(ctx context.Context, handler HandlerFunc) {
	defer r.wg.Done()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("Main queue processor stopped by context")
			return
		case <-r.stopChan:
			logrus.Info("Main queue processor stopped")
			return
		default:
			if err := r.processNext(ctx, handler); err != nil {
				logrus.WithError(err).Error("Error processing queue")
				select {
				case <-ctx.Done():
				case <-r.stopChan:
				case <-time.After(time.Second):
				}
			}
		}
	}
}

// processNext moves one task to the processing list, runs it and clears it.
func (r *RedisQueue) processNext(ctx context.Context, handler HandlerFunc) error {
	taskData, err := r.client.BRPopLPush(ctx, r.keys.Main, r.keys.Processing, r.config.QueueTimeout).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to move task to processing queue: %w", err)
	}

	r.runTask(ctx, taskData, handler)

	// the task context may be cancelled by now, the cleanup still has to happen
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.client.LRem(cleanupCtx, r.keys.Processing, 1, taskData).Err(); err != nil {
		logrus.WithError(err).Warn("Failed to remove task from processing queue")
	}
	return nil
}

func (r *RedisQueue) runTask(ctx context.Context, taskData string, handler HandlerFunc) {
	var task Task
	if err := json.Unmarshal([]byte(taskData), &task); err != nil {
		corrupted := &Task{
			ID:        "corrupted_" + generateTaskID(),
			Type:      "corrupted",
			Data:      map[string]interface{}{"raw_data": taskData},
			CreatedAt: time.Now(),
		}
		metrics.QueueTasks.WithLabelValues("corrupted", "dlq").Inc()
		r.dlqHandler.HandleFailedTask(ctx, corrupted, fmt.Errorf("invalid task format: %w", err))
		return
	}

	log := logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
	})
	if err := r.executeTaskWithRetry(ctx, &task, handler); err != nil {
		log.WithError(err).WithField("attempts", task.Attempts).Error("Task failed")
		metrics.QueueTasks.WithLabelValues(string(task.Type), "dlq").Inc()
		r.dlqHandler.HandleFailedTask(ctx, &task, err)
		return
	}
	metrics.QueueTasks.WithLabelValues(string(task.Type), "ok").Inc()
	log.Debug("Task completed")
}

func (r *RedisQueue) executeTaskWithRetry(ctx context.Context, task *Task, handler HandlerFunc) error {
	for {
		task.Attempts++

		err := handler(ctx, task)
		if err == nil {
			return nil
		}

		shouldRetry, delay := r.retryManager.ShouldRetry(task, err)
		if !shouldRetry {
			return err
		}
		metrics.QueueTasks.WithLabelValues(string(task.Type), "retry").Inc()

		logrus.WithFields(logrus.Fields{
			"task_id":  task.ID,
			"attempt":  task.Attempts,
			"retry_in": delay.String(),
		}).WithError(err).Warn("Task failed, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.stopChan:
			return fmt.Errorf("queue closed while retrying: %w", err)
		case <-time.After(delay):
		}
	}
}

func (r *RedisQueue) processDelayedTasks(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			if err := r.moveReadyDelayedTasks(ctx, time.Now()); err != nil {
				logrus.WithError(err).Error("Failed to process delayed tasks")
			}
		}
	}
}

// moveReadyDelayedTasks moves tasks due at or before now onto the main list.
func (r *RedisQueue) moveReadyDelayedTasks(ctx context.Context, now time.Time) error {
	upper := fmt.Sprintf("%f", score(now))

	tasks, err := r.client.ZRangeByScore(ctx, r.keys.Delayed, &redis.ZRangeBy{
		Min: "-inf",
		Max: upper,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to get delayed tasks: %w", err)
	}
	if len(tasks) == 0 {
		return nil
	}

	pipe := r.client.TxPipeline()
	for _, taskData := range tasks {
		pipe.LPush(ctx, r.keys.Main, taskData)
		pipe.ZRem(ctx, r.keys.Delayed, taskData)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to move delayed tasks: %w", err)
	}

	logrus.WithField("count", len(tasks)).Debug("Moved delayed tasks to main queue")
	return nil
}

// prepareTask validates the task and fills in defaults.
func (r *RedisQueue) prepareTask(task *Task, now time.Time) error {
	if task.ID == "" {
		task.ID = generateTaskID()
	}
	if err := task.Validate(); err != nil {
		return err
	}
	if task.MaxRetries == 0 {
		task.MaxRetries = r.config.MaxRetries
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.ExecuteAt.IsZero() {
		task.ExecuteAt = now
	}
	return nil
}

func (r *RedisQueue) monitorQueue(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			stats, err := r.GetQueueStats(ctx)
			if err != nil {
				logrus.WithError(err).Warn("Failed to collect queue stats")
				continue
			}
			if stats.MainQueue > r.config.DLQThreshold {
				logrus.WithFields(logrus.Fields{
					"size":      stats.MainQueue,
					"threshold": r.config.DLQThreshold,
				}).Warn("Main queue size exceeds threshold")
			}
		}
	}
}

// QueueStats contains statistics about queue state
type QueueStats struct {
	MainQueue       int64     `json:"main_queue"`
	DelayedQueue    int64     `json:"delayed_queue"`
	ProcessingQueue int64     `json:"processing_queue"`
	DLQ             int64     `json:"dlq"`
	Timestamp       time.Time `json:"timestamp"`
}

func (r *RedisQueue) GetQueueStats(ctx context.Context) (*QueueStats, error) {
	pipe := r.client.Pipeline()
	mainLen := pipe.LLen(ctx, r.keys.Main)
	delayedLen := pipe.ZCard(ctx, r.keys.Delayed)
	processingLen := pipe.LLen(ctx, r.keys.Processing)
	dlqLen := pipe.ZCard(ctx, r.keys.DLQ)

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get queue stats: %w", err)
	}

	return &QueueStats{
		MainQueue:       mainLen.Val(),
		DelayedQueue:    delayedLen.Val(),
		ProcessingQueue: processingLen.Val(),
		DLQ:             dlqLen.Val(),
		Timestamp:       time.Now(),
	}, nil
}

// Close stops the consumers and waits for the in-flight task.
func (r *RedisQueue) Close() error {
	r.stopOnce.Do(func() { close(r.stopChan) })
	r.wg.Wait()
	logrus.Info("RedisQueue closed")
	return nil
}

func (r *RedisQueue) HealthCheck(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

func score(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

