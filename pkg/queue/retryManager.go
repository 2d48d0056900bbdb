package queue

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
)

// ErrPermanent marks failures that will not succeed on retry.
var ErrPermanent = errors.New("permanent task failure")

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() []error { return []error{ErrPermanent, e.err} }

// Permanent wraps err so the queue sends the task straight to the DLQ.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryManager manages retry logic for failed tasks
type RetryManager struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

func NewRetryManager(maxRetries int, baseDelay time.Duration) *RetryManager {
	return &RetryManager{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   baseDelay * 16,
	}
}

// ShouldRetry determines if a task should be retried and returns the delay
func (r *RetryManager) ShouldRetry(task *Task, err error) (bool, time.Duration) {
	limit := task.MaxRetries
	if limit <= 0 {
		limit = r.maxRetries
	}
	if task.Attempts >= limit {
		return false, 0
	}
	if !IsRetryable(err) {
		return false, 0
	}
	return true, r.backoff(task.Attempts)
}

// IsRetryable is false for permanent failures and for domain errors that
// describe the data rather than the infrastructure.
func IsRetryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrPermanent),
		errors.Is(err, entity.ErrInvalidInput),
		errors.Is(err, entity.ErrBookingNotFound),
		errors.Is(err, entity.ErrTransactionNotFound):
		return false
	default:
		return true
	}
}

// backoff is base * 2^(attempt-1) with ±25% jitter, capped at 16x base.
func (r *RetryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 || r.baseDelay <= 0 {
		return r.baseDelay
	}

	backoff := r.baseDelay * time.Duration(1<<(attempt-1))
	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}

	if quarter := int64(backoff / 4); quarter > 0 {
		jitter := time.Duration(rand.Int63n(2*quarter+1) - quarter)
		backoff += jitter
	}
	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}
	return backoff
}
