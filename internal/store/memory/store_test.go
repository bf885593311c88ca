package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

var base = time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC)

func seedClient(t *testing.T, s *Store, phone string) domain.Client {
	t.Helper()
	c, err := s.UpsertClientByPhone(context.Background(), domain.Client{Name: "Cliente " + phone, Phone: phone})
	require.NoError(t, err)
	return c
}

func create(ctx context.Context, s *Store, b domain.Booking) (domain.Booking, error) {
	var out domain.Booking
	err := s.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		var err error
		out, err = tx.CreateBooking(ctx, b)
		return err
	})
	return out, err
}

func slot(clientID uuid.UUID, start time.Time, mins int) domain.Booking {
	return domain.Booking{
		ClientID:        clientID,
		StartsAt:        start,
		EndsAt:          domain.EndOf(start, mins),
		DurationMinutes: mins,
	}
}

func TestStore_CreateEnforcesNoOverlap(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s, "+5491100000001")

	first, err := create(ctx, s, slot(c.ID, base, 30))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusScheduled, first.Status)
	require.NotNil(t, first.Client)
	assert.Equal(t, c.Phone, first.Client.Phone)

	_, err = create(ctx, s, slot(c.ID, base.Add(30*time.Minute), 30))
	require.NoError(t, err, "abutting booking must be accepted")

	_, err = create(ctx, s, slot(c.ID, base.Add(29*time.Minute), 30))
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = create(ctx, s, slot(uuid.New(), base.Add(5*time.Hour), 30))
	assert.ErrorIs(t, err, store.ErrUnknownClient)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_FailedTransactionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s, "+5491100000002")

	boom := errors.New("boom")
	err := s.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		if _, err := tx.CreateBooking(ctx, slot(c.ID, base, 30)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := s.ListBookings(ctx, store.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStore_NeighborsPruneAndLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s, "+5491100000003")

	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		b, err := create(ctx, s, slot(c.ID, base.Add(time.Duration(i)*time.Hour), 30))
		require.NoError(t, err)
		ids = append(ids, b.ID)
	}

	err := s.InCalendarTransaction(ctx, func(ctx context.Context, tx store.CalendarTx) error {
		rows, err := tx.ListScheduledNeighbors(ctx, base, base.Add(4*time.Hour), uuid.Nil, 0)
		require.NoError(t, err)
		assert.Len(t, rows, 4)

		rows, err = tx.ListScheduledNeighbors(ctx, base, base.Add(4*time.Hour), uuid.Nil, 2)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, ids[0], rows[0].ID)
		assert.Equal(t, ids[1], rows[1].ID)

		// Bookings ending exactly at start or starting exactly at end are not neighbors.
		rows, err = tx.ListScheduledNeighbors(ctx, base.Add(30*time.Minute), base.Add(time.Hour), uuid.Nil, 0)
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = tx.ListScheduledNeighbors(ctx, base, base.Add(time.Hour), ids[0], 0)
		require.NoError(t, err)
		assert.Empty(t, rows)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_CancelSeries(t *testing.T) {
	ctx := context.Background()
	s := New()
	c := seedClient(t, s, "+5491100000004")

	series := "s-1"
	for i := 0; i < 4; i++ {
		b := slot(c.ID, base.AddDate(0, 0, 7*i), 45)
		b.SeriesID = &series
		_, err := create(ctx, s, b)
		require.NoError(t, err)
	}

	notBefore := base.AddDate(0, 0, 14)
	n, err := s.CancelSeries(ctx, series, &notBefore)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CancelSeries(ctx, series, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	scheduled, err := s.ListScheduled(ctx, base.AddDate(0, 0, -1), base.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Empty(t, scheduled)
}

func TestStore_Clients(t *testing.T) {
	ctx := context.Background()
	s := New()

	a := seedClient(t, s, "+5491100000005")
	again, err := s.UpsertClientByPhone(ctx, domain.Client{Name: "Renamed", Phone: a.Phone})
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)
	assert.Equal(t, "Renamed", again.Name)

	_, err = s.CreateClient(ctx, domain.Client{Name: "Dup", Phone: a.Phone})
	assert.ErrorIs(t, err, store.ErrConflict)

	b, err := s.CreateClient(ctx, domain.Client{Name: "Other", Phone: "+5491100000006"})
	require.NoError(t, err)

	b.Phone = a.Phone
	_, err = s.UpdateClient(ctx, b)
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = create(ctx, s, slot(a.ID, base, 30))
	require.NoError(t, err)
	assert.ErrorIs(t, s.DeleteClient(ctx, a.ID), store.ErrConflict)
	require.NoError(t, s.DeleteClient(ctx, b.ID))
	assert.ErrorIs(t, s.DeleteClient(ctx, b.ID), store.ErrNotFound)

	list, err := s.ListClients(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
