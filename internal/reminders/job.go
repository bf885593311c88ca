// Package reminders sends next-day booking reminders on a daily schedule.
package reminders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/notify"
	"turnero/backend/internal/phone"
)

// DefaultHour is the local hour of the daily run.
const DefaultHour = 10

const runTimeout = 5 * time.Minute

type BookingSource interface {
	ListScheduled(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
}

type Config struct {
	Location *time.Location
	Now      func() time.Time
	Logger   *slog.Logger
}

type Job struct {
	bookings BookingSource
	notifier notify.Notifier
	loc      *time.Location
	now      func() time.Time
	log      *slog.Logger
}

func NewJob(bookings BookingSource, notifier notify.Notifier, cfg Config) *Job {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Job{
		bookings: bookings,
		notifier: notifier,
		loc:      cfg.Location,
		now:      cfg.Now,
		log:      cfg.Logger.With(slog.String("component", "reminders")),
	}
}

type Summary struct {
	Total  int
	Sent   int
	Failed int
}

// RunOnce reminds every client with a SCHEDULED booking tomorrow (local
// time). A failed message is logged and counted; it never stops the batch.
func (j *Job) RunOnce(ctx context.Context) (Summary, error) {
	tomorrow := domain.AddDays(j.now().In(j.loc), 1)
	from := domain.StartOfDay(tomorrow)
	until := domain.EndOfDay(tomorrow)

	rows, err := j.bookings.ListScheduled(ctx, from, until)
	if err != nil {
		j.log.ErrorContext(ctx, "reminder run failed", slog.Any("err", err))
		return Summary{}, err
	}

	sum := Summary{Total: len(rows)}
	if len(rows) == 0 {
		j.log.InfoContext(ctx, "no reminders to send", slog.String("date", from.Format(domain.DateLayout)))
		return sum, nil
	}

	for _, b := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		if b.Client == nil {
			sum.Failed++
			j.log.WarnContext(ctx, "booking without client", slog.String("booking_id", b.ID.String()))
			continue
		}

		to := phone.WhatsAppAddress(b.Client.Phone)
		receipt, err := j.notifier.Send(ctx, to, Message(b, j.loc))
		if err != nil {
			sum.Failed++
			j.log.ErrorContext(ctx, "reminder failed",
				slog.String("booking_id", b.ID.String()),
				slog.String("to", to),
				slog.Any("err", err),
			)
			continue
		}
		sum.Sent++
		j.log.InfoContext(ctx, "reminder sent",
			slog.String("booking_id", b.ID.String()),
			slog.String("to", to),
			slog.String("receipt", receipt.ID),
			slog.Bool("simulated", receipt.Simulated),
		)
	}

	j.log.InfoContext(ctx, "reminder run finished",
		slog.Int("total", sum.Total),
		slog.Int("sent", sum.Sent),
		slog.Int("failed", sum.Failed),
	)
	return sum, nil
}

// Message is the reminder text for b, with date and time in loc.
func Message(b domain.Booking, loc *time.Location) string {
	start := b.StartsAt.In(loc)
	name := ""
	if b.Client != nil {
		name = " " + b.Client.Name
	}
	service := ""
	if b.ServiceName != nil && *b.ServiceName != "" {
		service = " de " + *b.ServiceName
	}
	return fmt.Sprintf("¡Hola%s! Te recordamos tu turno%s para mañana %s a las %s. Si no podés asistir, avisá por este medio.",
		name, service, start.Format("02/01/2006"), start.Format("15:04"))
}

// Spec returns the cron expression for a daily run at hour, unless override
// is set.
func Spec(hour int, override string) string {
	if override != "" {
		return override
	}
	return fmt.Sprintf("0 %d * * *", hour)
}

// Scheduler runs a Job on a cron schedule in the business time zone.
type Scheduler struct {
	cron *cron.Cron
	loc  *time.Location
}

func NewScheduler(job *Job, spec string) (*Scheduler, error) {
	c := cron.New(
		cron.WithLocation(job.loc),
		cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		_, _ = job.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("reminders: invalid schedule %q: %w", spec, err)
	}
	job.log.Info("reminders scheduled", slog.String("schedule", spec), slog.String("tz", job.loc.String()))
	return &Scheduler{cron: c, loc: job.loc}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and returns a context done once running ones end.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next is the next scheduled run, in the business time zone.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	// Schedules without CRON_TZ evaluate in the zone of the time passed in.
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}
