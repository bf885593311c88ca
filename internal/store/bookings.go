package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"turnero/backend/internal/domain"
)

// BookingFilter restricts listings to bookings starting within [From, To].
// Nil bounds are open.
type BookingFilter struct {
	From *time.Time
	To   *time.Time
}

type BookingRepository interface {
	// InCalendarTransaction runs fn while holding the provider calendar lock,
	// so an overlap check and the write that follows it commit atomically.
	InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx CalendarTx) error) error

	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	ListScheduled(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
	CancelSeries(ctx context.Context, seriesID string, notBefore *time.Time) (int, error)
}

type CalendarTx interface {
	GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error)

	// ListScheduledNeighbors returns SCHEDULED bookings starting before end
	// and ending after start, excluding excludeID, ordered by start. A
	// positive limit caps the number of rows.
	ListScheduledNeighbors(ctx context.Context, start, end time.Time, excludeID uuid.UUID, limit int) ([]domain.Booking, error)

	// FindScheduledInSeries returns the earliest SCHEDULED booking of the
	// series starting within [from, to].
	FindScheduledInSeries(ctx context.Context, seriesID string, from, to time.Time) (domain.Booking, error)

	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	SetBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.Booking, error)
}
