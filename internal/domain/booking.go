package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "SCHEDULED"
	BookingStatusCanceled  BookingStatus = "CANCELED"
	BookingStatusDone      BookingStatus = "DONE"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusScheduled, BookingStatusCanceled, BookingStatusDone:
		return true
	}
	return false
}

// Booking is one time-boxed appointment. EndsAt is derived from StartsAt and
// DurationMinutes and is persisted so storage can index and constrain it.
type Booking struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid"`
	ClientID        uuid.UUID     `bun:"client_id,notnull,type:uuid"`
	Client          *Client       `bun:"rel:belongs-to,join:client_id=id"`
	StartsAt        time.Time     `bun:"starts_at,notnull"`
	EndsAt          time.Time     `bun:"ends_at,notnull"`
	DurationMinutes int           `bun:"duration_minutes,notnull"`
	ServiceName     *string       `bun:"service_name"`
	Status          BookingStatus `bun:"status,notnull"`
	SeriesID        *string       `bun:"series_id"`
	CreatedAt       time.Time     `bun:"created_at,notnull"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull"`
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.Status == "" {
			b.Status = BookingStatusScheduled
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}

// InSeries reports whether the booking was created from a recurrence request.
func (b Booking) InSeries() bool {
	return b.SeriesID != nil && *b.SeriesID != ""
}
