package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/pkg/kafka"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type BookingReader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
}

// RollupInvalidator drops the cached monthly rollup report. Settlement calls
// it synchronously once the transaction is stored.
type RollupInvalidator interface {
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload interface{}) error
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TaskHandler runs the background side effects of booking operations.
type TaskHandler struct {
	bookings BookingReader
	events   EventPublisher
	notifier Notifier
}

func NewTaskHandler(bookings BookingReader, events EventPublisher, notifier Notifier) *TaskHandler {
	return &TaskHandler{
		bookings: bookings,
		events:   events,
		notifier: notifier,
	}
}

func (h *TaskHandler) HandleTask(ctx context.Context, task *Task) error {
	logrus.WithFields(logrus.Fields{
		"task_id":   task.ID,
		"task_type": task.Type,
		"attempt":   task.Attempts,
	}).Debug("Handling task")

	switch task.Type {
	case TaskTypeTransactionRecorded:
		return h.handleTransactionRecorded(ctx, task)
	case TaskTypeEventReminder:
		return h.handleEventReminder(ctx, task)
	case TaskTypeStatusNotification:
		return h.handleStatusNotification(ctx, task)
	default:
		return Permanent(fmt.Errorf("unknown task type: %s", task.Type))
	}
}

// handleTransactionRecorded announces the settlement on Kafka and in chat.
func (h *TaskHandler) handleTransactionRecorded(ctx context.Context, task *Task) error {
	bookingID, err := task.GetUUID(DataBookingID)
	if err != nil {
		return err
	}

	payload := map[string]interface{}{
		DataBookingID:     bookingID.String(),
		DataTransactionID: task.GetString(DataTransactionID),
		DataAmount:        task.GetString(DataAmount),
		DataProfit:        task.GetString(DataProfit),
		DataCompletedAt:   task.GetString(DataCompletedAt),
	}
	if err := h.events.Publish(ctx, kafka.EventTransactionRecorded, bookingID.String(), payload); err != nil {
		return fmt.Errorf("failed to publish transaction event: %w", err)
	}

	h.notify(ctx, fmt.Sprintf("Booking %s settled: collected %s, profit %s",
		bookingID, task.GetString(DataAmount), task.GetString(DataProfit)))
	return nil
}

// handleEventReminder is scheduled at confirmation. It is skipped when the
// booking has since left confirmed or moved to another slot.
func (h *TaskHandler) handleEventReminder(ctx context.Context, task *Task) error {
	bookingID, err := task.GetUUID(DataBookingID)
	if err != nil {
		return err
	}

	booking, err := h.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to get booking %s: %w", bookingID, err)
	}

	log := logrus.WithField("booking_id", bookingID)
	if booking.Status != entity.BookingStatusConfirmed {
		log.WithField("status", booking.Status).Info("Booking no longer confirmed, skipping reminder")
		return nil
	}
	if booking.EventDate.String() != task.GetString(DataEventDate) || booking.EventTime != task.GetString(DataEventTime) {
		log.Info("Booking was rescheduled, skipping stale reminder")
		return nil
	}

	text := fmt.Sprintf("Reminder: %s event on %s at %s", booking.EventType, booking.EventDate, booking.EventTime)
	if addr := strings.TrimSpace(booking.Location.Address); addr != "" {
		text += ", " + addr
	}
	if len(booking.AssignedStaff) == 0 {
		text += ". No staff assigned yet"
	}
	if err := h.notifier.Notify(ctx, text); err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

func (h *TaskHandler) handleStatusNotification(ctx context.Context, task *Task) error {
	bookingID, err := task.GetUUID(DataBookingID)
	if err != nil {
		return err
	}
	status := task.GetString(DataStatus)
	if status == "" {
		return Permanent(fmt.Errorf("task %s: status is required", task.ID))
	}

	payload := map[string]interface{}{
		DataBookingID: bookingID.String(),
		DataStatus:    status,
		DataActor:     task.GetString(DataActor),
	}
	if reason := task.GetString(DataReason); reason != "" {
		payload[DataReason] = reason
	}
	if err := h.events.Publish(ctx, kafka.EventBookingStatusChanged, bookingID.String(), payload); err != nil {
		return fmt.Errorf("failed to publish status event: %w", err)
	}

	text := fmt.Sprintf("Booking %s is now %s", bookingID, status)
	if reason := task.GetString(DataReason); reason != "" {
		text += ": " + reason
	}
	h.notify(ctx, text)
	return nil
}

// notify never fails the task, the event has already been published.
func (h *TaskHandler) notify(ctx context.Context, text string) {
	if err := h.notifier.Notify(ctx, text); err != nil {
		logrus.WithError(err).Warn("Failed to send notification")
	}
}
