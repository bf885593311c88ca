package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/service/clients"
	"turnero/backend/internal/store"
)

const skipReasonOverlap = "overlaps an existing booking"

type RecurringInput struct {
	Client          clients.Ref
	StartDate       string
	Time            string
	Interval        domain.IntervalType
	Count           *int
	UntilDate       *string
	DurationMinutes int
	ServiceName     *string
}

type SkippedOccurrence struct {
	StartsAt time.Time
	Reason   string
}

type SeriesBooking struct {
	ID       uuid.UUID
	StartsAt time.Time
}

type SeriesResult struct {
	SeriesID string
	Created  int
	Skipped  []SkippedOccurrence
	Bookings []SeriesBooking
}

// Complete reports whether every generated occurrence was booked.
func (r SeriesResult) Complete() bool {
	return len(r.Skipped) == 0
}

// CreateRecurring books every occurrence of the rule under a fresh series id.
// Occurrences that collide with the calendar are skipped and reported; the
// rest are committed one at a time, in order.
func (s *Service) CreateRecurring(ctx context.Context, in RecurringInput) (SeriesResult, error) {
	if in.Count == nil && in.UntilDate == nil {
		return SeriesResult{}, domain.NewValidationError("count", "count or untilDate is required")
	}
	if in.Count != nil && *in.Count < 1 {
		return SeriesResult{}, domain.NewValidationError("count", "count must be at least 1")
	}
	if err := validateDuration(in.DurationMinutes); err != nil {
		return SeriesResult{}, err
	}

	occurrences, err := s.generator.Occurrences(domain.RecurrenceRule{
		StartDate: in.StartDate,
		Time:      in.Time,
		Interval:  in.Interval,
		Count:     in.Count,
		UntilDate: in.UntilDate,
	})
	if err != nil {
		return SeriesResult{}, err
	}

	clientID, err := s.clients.Resolve(ctx, in.Client)
	if err != nil {
		return SeriesResult{}, err
	}

	seriesUUID, err := uuid.NewV7()
	if err != nil {
		return SeriesResult{}, err
	}
	seriesID := seriesUUID.String()
	serviceName := trimmedOrNil(in.ServiceName)

	result := SeriesResult{
		SeriesID: seriesID,
		Skipped:  []SkippedOccurrence{},
		Bookings: []SeriesBooking{},
	}
	logger := s.logger.With(slog.String("series_id", seriesID))

	for {
		start, ok := occurrences.Next()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		b := domain.Booking{
			ClientID:        clientID,
			StartsAt:        start.UTC(),
			EndsAt:          domain.EndOf(start, in.DurationMinutes).UTC(),
			DurationMinutes: in.DurationMinutes,
			ServiceName:     serviceName,
			Status:          domain.BookingStatusScheduled,
			SeriesID:        &seriesID,
		}

		var created domain.Booking
		err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
			var err error
			created, err = s.reserve(ctx, tx, b)
			return err
		})
		switch {
		case err == nil:
			result.Created++
			result.Bookings = append(result.Bookings, SeriesBooking{ID: created.ID, StartsAt: created.StartsAt})
		case errors.Is(err, store.ErrConflict):
			logger.InfoContext(ctx, "series occurrence skipped", slog.Time("starts_at", b.StartsAt), slog.Any("error", err))
			result.Skipped = append(result.Skipped, SkippedOccurrence{StartsAt: b.StartsAt, Reason: skipReasonOverlap})
		default:
			// Occurrences already committed stay booked.
			return result, s.failure(ctx, "create series occurrence", err)
		}
	}

	logger.InfoContext(ctx, "series created",
		slog.Int("created", result.Created),
		slog.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

type CancelSeriesResult struct {
	SeriesID   string
	Affected   int
	OnlyFuture bool
}

// CancelSeries cancels the SCHEDULED bookings of a series; with onlyFuture
// set, bookings that started before now are left untouched.
func (s *Service) CancelSeries(ctx context.Context, seriesID string, onlyFuture bool) (CancelSeriesResult, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return CancelSeriesResult{}, domain.NewValidationError("seriesId", "seriesId is required")
	}

	var notBefore *time.Time
	if onlyFuture {
		now := s.now().UTC()
		notBefore = &now
	}

	affected, err := s.repo.CancelSeries(ctx, seriesID, notBefore)
	if err != nil {
		return CancelSeriesResult{}, s.failure(ctx, "cancel series", err)
	}

	s.logger.InfoContext(ctx, "series canceled",
		slog.String("series_id", seriesID),
		slog.Int("affected", affected),
		slog.Bool("only_future", onlyFuture),
	)
	return CancelSeriesResult{SeriesID: seriesID, Affected: affected, OnlyFuture: onlyFuture}, nil
}

type CanceledOccurrence struct {
	ID       uuid.UUID
	StartsAt time.Time
}

// CancelOneInSeries cancels the earliest SCHEDULED occurrence of the series
// starting within the match tolerance of the local date and time.
func (s *Service) CancelOneInSeries(ctx context.Context, seriesID, date, clock string) (CanceledOccurrence, error) {
	seriesID = strings.TrimSpace(seriesID)
	if seriesID == "" {
		return CanceledOccurrence{}, domain.NewValidationError("seriesId", "seriesId is required")
	}
	target, err := domain.ParseLocalDateTime(date, clock, s.Location())
	if err != nil {
		return CanceledOccurrence{}, err
	}

	from := target.Add(-s.tolerance).UTC()
	to := target.Add(s.tolerance).UTC()

	var out CanceledOccurrence
	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		match, err := tx.FindScheduledInSeries(ctx, seriesID, from, to)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no scheduled occurrence of series %s near %s %s: %w", seriesID, date, clock, store.ErrNotFound)
		}
		if err != nil {
			return err
		}
		canceled, err := tx.SetBookingStatus(ctx, match.ID, domain.BookingStatusCanceled)
		if err != nil {
			return err
		}
		out = CanceledOccurrence{ID: canceled.ID, StartsAt: canceled.StartsAt}
		return nil
	})
	if err != nil {
		return CanceledOccurrence{}, s.failure(ctx, "cancel series occurrence", err)
	}

	s.logger.InfoContext(ctx, "series occurrence canceled",
		slog.String("series_id", seriesID),
		slog.String("booking_id", out.ID.String()),
	)
	return out, nil
}
