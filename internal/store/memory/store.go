// Package memory keeps clients and bookings in process memory. It enforces
// the same constraints as the Postgres schema and is meant for local runs and
// tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	clients  map[uuid.UUID]domain.Client
	bookings map[uuid.UUID]domain.Booking
}

func New() *Store {
	return &Store{
		now:      func() time.Time { return time.Now().UTC() },
		clients:  make(map[uuid.UUID]domain.Client),
		bookings: make(map[uuid.UUID]domain.Booking),
	}
}

// InCalendarTransaction runs fn against a private copy of the bookings and
// publishes it only when fn succeeds.
func (s *Store) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := make(map[uuid.UUID]domain.Booking, len(s.bookings))
	for id, b := range s.bookings {
		work[id] = b
	}
	tx := &calendarTx{store: s, bookings: work}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.bookings = work
	return nil
}

func (s *Store) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return s.withClient(b), nil
}

func (s *Store) ListBookings(ctx context.Context, filter store.BookingFilter) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.bookings, func(b domain.Booking) bool {
		if filter.From != nil && b.StartsAt.Before(*filter.From) {
			return false
		}
		if filter.To != nil && b.StartsAt.After(*filter.To) {
			return false
		}
		return true
	}), nil
}

func (s *Store) ListScheduled(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collect(s.bookings, func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusScheduled &&
			!b.StartsAt.Before(from) && !b.StartsAt.After(to)
	}), nil
}

func (s *Store) CancelSeries(ctx context.Context, seriesID string, notBefore *time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, b := range s.bookings {
		if b.SeriesID == nil || *b.SeriesID != seriesID || b.Status != domain.BookingStatusScheduled {
			continue
		}
		if notBefore != nil && b.StartsAt.Before(*notBefore) {
			continue
		}
		b.Status = domain.BookingStatusCanceled
		b.UpdatedAt = s.now()
		s.bookings[id] = b
		n++
	}
	return n, nil
}

func (s *Store) collect(bookings map[uuid.UUID]domain.Booking, keep func(domain.Booking) bool) []domain.Booking {
	out := make([]domain.Booking, 0)
	for _, b := range bookings {
		if keep(b) {
			out = append(out, s.withClient(b))
		}
	}
	sortByStart(out)
	return out
}

func (s *Store) withClient(b domain.Booking) domain.Booking {
	if c, ok := s.clients[b.ClientID]; ok {
		b.Client = &c
	}
	return b
}

func sortByStart(rows []domain.Booking) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].StartsAt.Equal(rows[j].StartsAt) {
			return rows[i].ID.String() < rows[j].ID.String()
		}
		return rows[i].StartsAt.Before(rows[j].StartsAt)
	})
}

type calendarTx struct {
	store    *Store
	bookings map[uuid.UUID]domain.Booking
}

func (t *calendarTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	return t.store.withClient(b), nil
}

func (t *calendarTx) ListScheduledNeighbors(ctx context.Context, start, end time.Time, excludeID uuid.UUID, limit int) ([]domain.Booking, error) {
	rows := t.store.collect(t.bookings, func(b domain.Booking) bool {
		return b.Status == domain.BookingStatusScheduled &&
			b.ID != excludeID &&
			b.StartsAt.Before(end) && b.EndsAt.After(start)
	})
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (t *calendarTx) FindScheduledInSeries(ctx context.Context, seriesID string, from, to time.Time) (domain.Booking, error) {
	rows := t.store.collect(t.bookings, func(b domain.Booking) bool {
		return b.SeriesID != nil && *b.SeriesID == seriesID &&
			b.Status == domain.BookingStatusScheduled &&
			!b.StartsAt.Before(from) && !b.StartsAt.After(to)
	})
	if len(rows) == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return rows[0], nil
}

func (t *calendarTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	if b.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return domain.Booking{}, err
		}
		b.ID = id
	} else if _, exists := t.bookings[b.ID]; exists {
		return domain.Booking{}, store.ErrIdempotencyConflict
	}
	if b.Status == "" {
		b.Status = domain.BookingStatusScheduled
	}
	now := t.store.now()
	b.CreatedAt = now
	b.UpdatedAt = now

	if err := t.check(b); err != nil {
		return domain.Booking{}, err
	}
	b.Client = nil
	t.bookings[b.ID] = b
	return t.store.withClient(b), nil
}

func (t *calendarTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	cur, ok := t.bookings[b.ID]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.CreatedAt = cur.CreatedAt
	b.SeriesID = cur.SeriesID
	b.UpdatedAt = t.store.now()
	if err := t.check(b); err != nil {
		return domain.Booking{}, err
	}
	b.Client = nil
	t.bookings[b.ID] = b
	return t.store.withClient(b), nil
}

func (t *calendarTx) SetBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.Booking, error) {
	b, ok := t.bookings[id]
	if !ok {
		return domain.Booking{}, store.ErrNotFound
	}
	b.Status = status
	b.UpdatedAt = t.store.now()
	if err := t.check(b); err != nil {
		return domain.Booking{}, err
	}
	t.bookings[id] = b
	return t.store.withClient(b), nil
}

// check mirrors the foreign key and the no-overlap exclusion constraint.
func (t *calendarTx) check(b domain.Booking) error {
	if _, ok := t.store.clients[b.ClientID]; !ok {
		return store.ErrUnknownClient
	}
	if b.Status != domain.BookingStatusScheduled {
		return nil
	}
	for id, other := range t.bookings {
		if id == b.ID || other.Status != domain.BookingStatusScheduled {
			continue
		}
		if domain.Overlaps(b.StartsAt, b.EndsAt, other.StartsAt, other.EndsAt) {
			return store.ErrConflict
		}
	}
	return nil
}

var (
	_ store.BookingRepository = (*Store)(nil)
	_ store.ClientRepository  = (*Store)(nil)
	_ store.CalendarTx        = (*calendarTx)(nil)
)
