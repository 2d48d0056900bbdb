package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeTransactionRecorded TaskType = "transaction_recorded"
	TaskTypeEventReminder       TaskType = "event_reminder"
	TaskTypeStatusNotification  TaskType = "status_notification"
)

// Keys used in Task.Data.
const (
	DataBookingID     = "booking_id"
	DataTransactionID = "transaction_id"
	DataStatus        = "status"
	DataActor         = "actor"
	DataReason        = "reason"
	DataAmount        = "amount"
	DataProfit        = "profit"
	DataEventDate     = "event_date"
	DataEventTime     = "event_time"
	DataCompletedAt   = "completed_at"
)

// Task represents a unit of work in the queue
type Task struct {
	ID         string                 `json:"id"`
	Type       TaskType               `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	CreatedAt  time.Time              `json:"created_at"`
	Attempts   int                    `json:"attempts"`
	MaxRetries int                    `json:"max_retries"`
}

// Validate checks if the task is valid
func (t *Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("task ID is required")
	}
	if strings.TrimSpace(string(t.Type)) == "" {
		return fmt.Errorf("task type is required")
	}
	if t.Data == nil {
		t.Data = make(map[string]interface{})
	}
	return nil
}

func (t *Task) GetString(key string) string {
	if val, ok := t.Data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetUUID reads an id stored as a string. A missing or malformed id is a
// permanent failure since retrying cannot fix the payload.
func (t *Task) GetUUID(key string) (uuid.UUID, error) {
	id, err := uuid.Parse(t.GetString(key))
	if err != nil {
		return uuid.Nil, Permanent(fmt.Errorf("task %s: invalid %s: %w", t.ID, key, err))
	}
	return id, nil
}

func generateTaskID() string {
	return "task_" + uuid.NewString()
}
