package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/metrics"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// digestLimit caps how many bookings are listed in one notification.
const digestLimit = 10

// SettlementSource lists confirmed bookings whose event day has passed.
type SettlementSource interface {
	AwaitingSettlement(ctx context.Context, today entity.Date) ([]*entity.Booking, *entity.BookingSummary, error)
}

type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Scheduler runs the periodic settlement sweep.
type Scheduler struct {
	source   SettlementSource
	notifier Notifier
	interval time.Duration
	loc      *time.Location
	now      func() time.Time

	cron gocron.Scheduler
}

func NewScheduler(source SettlementSource, notifier Notifier, interval time.Duration, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	cron, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{
		source:   source,
		notifier: notifier,
		interval: interval,
		loc:      loc,
		now:      time.Now,
		cron:     cron,
	}, nil
}

// Start registers the sweep, runs it once right away and stops the
// scheduler when ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	job, err := s.cron.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			if _, err := s.Sweep(ctx); err != nil && ctx.Err() == nil {
				logrus.WithError(err).Error("Settlement sweep failed")
			}
		}),
		gocron.WithName("settlement-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to register settlement sweep: %w", err)
	}

	s.cron.Start()
	logrus.WithFields(logrus.Fields{
		"job_id":   job.ID().String(),
		"interval": s.interval.String(),
	}).Info("Settlement scheduler started")

	go func() {
		<-ctx.Done()
		if err := s.cron.Shutdown(); err != nil {
			logrus.WithError(err).Warn("Settlement scheduler shutdown")
			return
		}
		logrus.Info("Settlement scheduler stopped")
	}()
	return nil
}

// Sweep reports bookings that still wait for their final payment and
// returns how many there are.
func (s *Scheduler) Sweep(ctx context.Context) (int, error) {
	today := entity.DateOf(s.now().In(s.loc))

	bookings, summary, err := s.source.AwaitingSettlement(ctx, today)
	if err != nil {
		return 0, err
	}
	metrics.AwaitingSettlement.Set(float64(len(bookings)))

	log := logrus.WithFields(logrus.Fields{
		"today":    today.String(),
		"awaiting": len(bookings),
	})
	if summary != nil {
		log = log.WithField("outstanding", summary.OutstandingTotal.StringFixed(2))
	}
	if len(bookings) == 0 {
		log.Debug("No bookings awaiting settlement")
		return 0, nil
	}
	log.Info("Bookings awaiting settlement")

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, Digest(bookings, summary)); err != nil {
			log.WithError(err).Warn("Failed to send settlement digest")
		}
	}
	return len(bookings), nil
}

// Digest renders the settlement reminder sent to staff.
func Digest(bookings []*entity.Booking, summary *entity.BookingSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d booking(s) awaiting settlement", len(bookings))
	if summary != nil {
		fmt.Fprintf(&b, ", %s outstanding", summary.OutstandingTotal.StringFixed(2))
	}
	b.WriteString(":")

	for i, booking := range bookings {
		if i == digestLimit {
			fmt.Fprintf(&b, "\n... and %d more", len(bookings)-digestLimit)
			break
		}
		fmt.Fprintf(&b, "\n- %s %s on %s, remaining %s",
			booking.ID, booking.EventType, booking.EventDate, booking.RemainingBalance.StringFixed(2))
	}
	return b.String()
}
