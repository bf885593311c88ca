package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/store"
)

// calendarLockKey names the single provider calendar. Every writer that
// reserves an interval serialises on it.
const calendarLockKey = "turnero:calendar"

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type calendarTx struct {
	tx bun.Tx
}

func (r *BookingRepo) InCalendarTransaction(ctx context.Context, fn func(ctx context.Context, tx store.CalendarTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockCalendar(ctx, tx); err != nil {
			return err
		}
		return fn(ctx, calendarTx{tx: tx})
	})
}

func lockCalendar(ctx context.Context, tx bun.Tx) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", calendarLockKey).Exec(ctx)
	return err
}

func (r *BookingRepo) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, r.db, id)
}

func (r *BookingRepo) ListBookings(ctx context.Context, filter store.BookingFilter) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.db.NewSelect().
		Model(&rows).
		Relation("Client").
		OrderExpr("b.starts_at ASC")
	if filter.From != nil {
		q = q.Where("b.starts_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		q = q.Where("b.starts_at <= ?", filter.To.UTC())
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) ListScheduled(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Client").
		Where("b.status = ?", domain.BookingStatusScheduled).
		Where("b.starts_at >= ?", from.UTC()).
		Where("b.starts_at <= ?", to.UTC()).
		OrderExpr("b.starts_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) CancelSeries(ctx context.Context, seriesID string, notBefore *time.Time) (int, error) {
	q := r.db.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", domain.BookingStatusCanceled).
		Set("updated_at = ?", time.Now().UTC()).
		Where("series_id = ?", seriesID).
		Where("status = ?", domain.BookingStatusScheduled)
	if notBefore != nil {
		q = q.Where("starts_at >= ?", notBefore.UTC())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r calendarTx) GetBooking(ctx context.Context, id uuid.UUID) (domain.Booking, error) {
	return getBooking(ctx, r.tx, id)
}

func (r calendarTx) ListScheduledNeighbors(ctx context.Context, start, end time.Time, excludeID uuid.UUID, limit int) ([]domain.Booking, error) {
	var rows []domain.Booking
	q := r.tx.NewSelect().
		Model(&rows).
		Where("b.status = ?", domain.BookingStatusScheduled).
		Where("b.starts_at < ?", end.UTC()).
		Where("b.ends_at > ?", start.UTC()).
		OrderExpr("b.starts_at ASC")
	if excludeID != uuid.Nil {
		q = q.Where("b.id <> ?", excludeID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r calendarTx) FindScheduledInSeries(ctx context.Context, seriesID string, from, to time.Time) (domain.Booking, error) {
	var b domain.Booking
	err := r.tx.NewSelect().
		Model(&b).
		Relation("Client").
		Where("b.series_id = ?", seriesID).
		Where("b.status = ?", domain.BookingStatusScheduled).
		Where("b.starts_at >= ?", from.UTC()).
		Where("b.starts_at <= ?", to.UTC()).
		OrderExpr("b.starts_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, mapReadError(err)
	}
	return b, nil
}

func (r calendarTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := bookingRow(b)
	if _, err := r.tx.NewInsert().Model(&m).Exec(ctx); err != nil {
		return domain.Booking{}, mapBookingWriteError(err)
	}
	return getBooking(ctx, r.tx, m.ID)
}

func (r calendarTx) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := bookingRow(b)
	res, err := r.tx.NewUpdate().
		Model(&m).
		Column("client_id", "starts_at", "ends_at", "duration_minutes", "service_name", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, mapBookingWriteError(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Booking{}, err
	}
	return getBooking(ctx, r.tx, m.ID)
}

func (r calendarTx) SetBookingStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (domain.Booking, error) {
	res, err := r.tx.NewUpdate().
		Model((*domain.Booking)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, mapBookingWriteError(err)
	}
	if err := requireAffected(res); err != nil {
		return domain.Booking{}, err
	}
	return getBooking(ctx, r.tx, id)
}

func getBooking(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := db.NewSelect().
		Model(&b).
		Relation("Client").
		Where("b.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Booking{}, mapReadError(err)
	}
	return b, nil
}

// bookingRow copies the persisted columns; the joined client is never written.
func bookingRow(b domain.Booking) domain.Booking {
	return domain.Booking{
		ID:              b.ID,
		ClientID:        b.ClientID,
		StartsAt:        b.StartsAt.UTC(),
		EndsAt:          b.EndsAt.UTC(),
		DurationMinutes: b.DurationMinutes,
		ServiceName:     b.ServiceName,
		Status:          b.Status,
		SeriesID:        b.SeriesID,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type rowsAffecter interface {
	RowsAffected() (int64, error)
}

func requireAffected(res rowsAffecter) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
