// Package bookings implements the booking lifecycle and recurring series on
// top of a single provider calendar.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/service/clients"
	"turnero/backend/internal/store"
)

const maxIdempotencyKeyLength = 256

// DefaultSeriesMatchTolerance is how far a stored occurrence may sit from
// the requested time in CancelOneInSeries.
const DefaultSeriesMatchTolerance = 30 * time.Minute

type ClientResolver interface {
	Resolve(ctx context.Context, ref clients.Ref) (uuid.UUID, error)
}

type Config struct {
	// Location interprets local dates and times. Defaults to time.Local.
	Location             *time.Location
	MaxOccurrences       int
	OverlapScanWindow    int
	SeriesMatchTolerance time.Duration
	Now                  func() time.Time
	Logger               *slog.Logger
}

type Service struct {
	repo      store.BookingRepository
	clients   ClientResolver
	generator *domain.OccurrenceGenerator
	overlap   OverlapChecker
	tolerance time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewService(repo store.BookingRepository, resolver ClientResolver, cfg Config) *Service {
	if cfg.SeriesMatchTolerance <= 0 {
		cfg.SeriesMatchTolerance = DefaultSeriesMatchTolerance
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		clients:   resolver,
		generator: domain.NewOccurrenceGenerator(cfg.Location, cfg.MaxOccurrences),
		overlap:   NewOverlapChecker(cfg.OverlapScanWindow),
		tolerance: cfg.SeriesMatchTolerance,
		now:       cfg.Now,
		logger:    cfg.Logger.With(slog.String("component", "bookings")),
	}
}

// Location is the zone local dates and times are read in.
func (s *Service) Location() *time.Location {
	return s.generator.Location()
}

type CreateInput struct {
	Client          clients.Ref
	StartsAt        time.Time
	DurationMinutes int
	ServiceName     *string
	// IdempotencyKey makes retries of the same request return the booking
	// created by the first attempt.
	IdempotencyKey string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Booking, error) {
	if in.StartsAt.IsZero() {
		return domain.Booking{}, domain.NewValidationError("startsAt", "startsAt is required")
	}
	if err := validateDuration(in.DurationMinutes); err != nil {
		return domain.Booking{}, err
	}

	// Postgres keeps microseconds; replays must compare equal to the stored row.
	startsAt := in.StartsAt.UTC().Truncate(time.Microsecond)
	b := domain.Booking{
		StartsAt:        startsAt,
		EndsAt:          domain.EndOf(startsAt, in.DurationMinutes).UTC(),
		DurationMinutes: in.DurationMinutes,
		ServiceName:     trimmedOrNil(in.ServiceName),
		Status:          domain.BookingStatusScheduled,
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if len(key) > maxIdempotencyKeyLength {
			return domain.Booking{}, domain.NewValidationError("idempotencyKey", "idempotency key too long")
		}
		b.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("turnero:create_booking:"+key))
	}

	clientID, err := s.clients.Resolve(ctx, in.Client)
	if err != nil {
		return domain.Booking{}, err
	}
	b.ClientID = clientID

	var out domain.Booking
	err = s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		if b.ID != uuid.Nil {
			existing, err := tx.GetBooking(ctx, b.ID)
			switch {
			case err == nil:
				if !sameRequest(existing, b) {
					return store.ErrIdempotencyConflict
				}
				out = existing
				return nil
			case !errors.Is(err, store.ErrNotFound):
				return err
			}
		}

		var err error
		out, err = s.reserve(ctx, tx, b)
		return err
	})
	if err != nil {
		return domain.Booking{}, s.failure(ctx, "create booking", err)
	}

	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", out.ID.String()),
		slog.Time("starts_at", out.StartsAt),
		slog.Int("duration_minutes", out.DurationMinutes),
	)
	return out, nil
}

// reserve checks b against the calendar and inserts it. It must run inside
// InCalendarTransaction.
func (s *Service) reserve(ctx context.Context, tx store.CalendarTx, b domain.Booking) (domain.Booking, error) {
	conflict, found, err := s.overlap.FindConflict(ctx, tx, b.StartsAt, b.EndsAt, uuid.Nil)
	if err != nil {
		return domain.Booking{}, err
	}
	if found {
		return domain.Booking{}, conflictError(conflict)
	}
	return tx.CreateBooking(ctx, b)
}

// UpdateInput holds the fields of a partial booking update. Absent options
// keep the stored value.
type UpdateInput struct {
	Client          mo.Option[clients.Ref]
	StartsAt        mo.Option[time.Time]
	DurationMinutes mo.Option[int]
	ServiceName     mo.Option[*string]
	Status          mo.Option[domain.BookingStatus]
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (domain.Booking, error) {
	if id == uuid.Nil {
		return domain.Booking{}, domain.NewValidationError("id", "id is required")
	}
	if v, ok := in.StartsAt.Get(); ok && v.IsZero() {
		return domain.Booking{}, domain.NewValidationError("startsAt", "startsAt must be a valid instant")
	}
	if v, ok := in.DurationMinutes.Get(); ok {
		if err := validateDuration(v); err != nil {
			return domain.Booking{}, err
		}
	}
	if v, ok := in.Status.Get(); ok && !v.Valid() {
		return domain.Booking{}, domain.NewValidationError("status", "status must be one of SCHEDULED, CANCELED, DONE")
	}

	clientID := uuid.Nil
	if ref, ok := in.Client.Get(); ok {
		// Resolving may upsert a client; do not do that for a missing booking.
		if _, err := s.repo.GetBooking(ctx, id); err != nil {
			return domain.Booking{}, s.failure(ctx, "update booking", err)
		}
		resolved, err := s.clients.Resolve(ctx, ref)
		if err != nil {
			return domain.Booking{}, err
		}
		clientID = resolved
	}

	var out domain.Booking
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		cur, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}

		next := cur
		next.Client = nil
		if clientID != uuid.Nil {
			next.ClientID = clientID
		}
		next.StartsAt = in.StartsAt.OrElse(cur.StartsAt).UTC().Truncate(time.Microsecond)
		next.DurationMinutes = in.DurationMinutes.OrElse(cur.DurationMinutes)
		next.ServiceName = trimmedOrNil(in.ServiceName.OrElse(cur.ServiceName))
		next.Status = in.Status.OrElse(cur.Status)
		next.EndsAt = domain.EndOf(next.StartsAt, next.DurationMinutes).UTC()

		// Only a booking that will hold its slot needs to fit the calendar.
		if next.Status == domain.BookingStatusScheduled {
			conflict, found, err := s.overlap.FindConflict(ctx, tx, next.StartsAt, next.EndsAt, id)
			if err != nil {
				return err
			}
			if found {
				return conflictError(conflict)
			}
		}

		out, err = tx.UpdateBooking(ctx, next)
		return err
	})
	if err != nil {
		return domain.Booking{}, s.failure(ctx, "update booking", err)
	}

	s.logger.InfoContext(ctx, "booking updated", slog.String("booking_id", id.String()), slog.String("status", string(out.Status)))
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.setStatus(ctx, id, domain.BookingStatusCanceled, "cancel booking")
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return s.setStatus(ctx, id, domain.BookingStatusDone, "complete booking")
}

func (s *Service) setStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, op string) (domain.Booking, error) {
	if id == uuid.Nil {
		return domain.Booking{}, domain.NewValidationError("id", "id is required")
	}
	var out domain.Booking
	err := s.repo.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		var err error
		out, err = tx.SetBookingStatus(ctx, id, status)
		return err
	})
	if err != nil {
		return domain.Booking{}, s.failure(ctx, op, err)
	}
	s.logger.InfoContext(ctx, "booking status changed", slog.String("booking_id", id.String()), slog.String("status", string(status)))
	return out, nil
}

// List returns bookings starting within the inclusive range, ordered by
// start. Nil bounds are open.
func (s *Service) List(ctx context.Context, from, to *time.Time) ([]domain.Booking, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, domain.NewValidationError("to", "to must not be before from")
	}
	rows, err := s.repo.ListBookings(ctx, store.BookingFilter{From: from, To: to})
	if err != nil {
		return nil, s.failure(ctx, "list bookings", err)
	}
	return rows, nil
}

// ListScheduled returns SCHEDULED bookings starting within [from, to].
func (s *Service) ListScheduled(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	rows, err := s.repo.ListScheduled(ctx, from, to)
	if err != nil {
		return nil, s.failure(ctx, "list scheduled bookings", err)
	}
	return rows, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	if id == uuid.Nil {
		return domain.Booking{}, domain.NewValidationError("id", "id is required")
	}
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return domain.Booking{}, s.failure(ctx, "get booking", err)
	}
	return b, nil
}

// failure classifies err and logs it at the level its kind deserves.
func (s *Service) failure(ctx context.Context, op string, err error) error {
	err = store.AsDependency(op, err)

	var validation *domain.ValidationError
	var dependency *domain.DependencyError
	switch {
	case errors.As(err, &validation):
		s.logger.WarnContext(ctx, op+" rejected", slog.String("field", validation.Field), slog.Any("error", err))
	case errors.As(err, &dependency):
		s.logger.ErrorContext(ctx, op+" failed", slog.Any("error", err))
	case errors.Is(err, store.ErrConflict):
		s.logger.InfoContext(ctx, op+" conflict", slog.Any("error", err))
	}
	return err
}

func conflictError(with domain.Booking) error {
	return fmt.Errorf("%w: overlaps booking %s starting %s", store.ErrConflict, with.ID, with.StartsAt.UTC().Format(time.RFC3339))
}

func validateDuration(mins int) error {
	if mins <= 0 {
		return domain.NewValidationError("durationMinutes", "durationMinutes must be greater than 0")
	}
	return nil
}

// sameRequest reports whether a replayed create matches the stored booking.
func sameRequest(stored, req domain.Booking) bool {
	return stored.ClientID == req.ClientID &&
		stored.StartsAt.Equal(req.StartsAt) &&
		stored.DurationMinutes == req.DurationMinutes &&
		equalOptional(stored.ServiceName, req.ServiceName)
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func trimmedOrNil(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
