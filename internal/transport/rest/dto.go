package rest

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/service/bookings"
	"turnero/backend/internal/service/clients"
)

type clientInput struct {
	Name  string  `json:"name" validate:"required"`
	Phone string  `json:"phone" validate:"required"`
	Notes *string `json:"notes"`
}

type clientPatch struct {
	Name  *string `json:"name" validate:"omitempty,min=1"`
	Phone *string `json:"phone" validate:"omitempty,min=1"`
	Notes *string `json:"notes"`
}

type createBookingRequest struct {
	StartsAt        string       `json:"startsAt" validate:"required"`
	DurationMinutes int          `json:"durationMinutes" validate:"gt=0"`
	ServiceName     *string      `json:"serviceName"`
	ClientID        *string      `json:"clientId" validate:"omitempty,uuid"`
	Client          *clientInput `json:"client"`
}

type updateBookingRequest struct {
	StartsAt        *string      `json:"startsAt"`
	DurationMinutes *int         `json:"durationMinutes" validate:"omitempty,gt=0"`
	ServiceName     *string      `json:"serviceName"`
	Status          *string      `json:"status" validate:"omitempty,oneof=SCHEDULED CANCELED DONE"`
	ClientID        *string      `json:"clientId" validate:"omitempty,uuid"`
	Client          *clientInput `json:"client"`
}

type recurringRequest struct {
	StartDate       string       `json:"startDate" validate:"required,datetime=2006-01-02"`
	Time            string       `json:"time" validate:"required,datetime=15:04"`
	IntervalType    string       `json:"intervalType" validate:"required,oneof=weekly biweekly monthly"`
	Count           *int         `json:"count" validate:"omitempty,gte=1"`
	UntilDate       *string      `json:"untilDate" validate:"omitempty,datetime=2006-01-02"`
	DurationMinutes int          `json:"durationMinutes" validate:"gt=0"`
	ServiceName     *string      `json:"serviceName"`
	ClientID        *string      `json:"clientId" validate:"omitempty,uuid"`
	Client          *clientInput `json:"client"`
}

type cancelOneRequest struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
	Time string `json:"time" validate:"required,datetime=15:04"`
}

func clientRef(clientID *string, inline *clientInput) clients.Ref {
	var ref clients.Ref
	if clientID != nil {
		// Already validated as a UUID.
		ref.ID = uuid.MustParse(*clientID)
	}
	if inline != nil {
		ref.Client = &clients.Input{Name: inline.Name, Phone: inline.Phone, Notes: inline.Notes}
	}
	return ref
}

func optional[T any](p *T) mo.Option[T] {
	if p == nil {
		return mo.None[T]()
	}
	return mo.Some(*p)
}

type clientResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Notes     *string   `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toClientResponse(c domain.Client) clientResponse {
	return clientResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type bookingResponse struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"clientId"`
	Client          *clientResponse `json:"client,omitempty"`
	StartsAt        time.Time       `json:"startsAt"`
	EndsAt          time.Time       `json:"endsAt"`
	DurationMinutes int             `json:"durationMinutes"`
	ServiceName     *string         `json:"serviceName"`
	Status          string          `json:"status"`
	SeriesID        *string         `json:"seriesId"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func toBookingResponse(b domain.Booking) bookingResponse {
	out := bookingResponse{
		ID:              b.ID.String(),
		ClientID:        b.ClientID.String(),
		StartsAt:        b.StartsAt.UTC(),
		EndsAt:          domain.EndOf(b.StartsAt, b.DurationMinutes).UTC(),
		DurationMinutes: b.DurationMinutes,
		ServiceName:     b.ServiceName,
		Status:          string(b.Status),
		SeriesID:        b.SeriesID,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
	if b.Client != nil {
		c := toClientResponse(*b.Client)
		out.Client = &c
	}
	return out
}

type skippedResponse struct {
	StartsAt time.Time `json:"startsAt"`
	Reason   string    `json:"reason"`
}

type seriesBookingResponse struct {
	ID       string    `json:"id"`
	StartsAt time.Time `json:"startsAt"`
}

type seriesResponse struct {
	SeriesID string                  `json:"seriesId"`
	Created  int                     `json:"created"`
	Complete bool                    `json:"complete"`
	Skipped  []skippedResponse       `json:"skipped"`
	Bookings []seriesBookingResponse `json:"bookings"`
}

func toSeriesResponse(r bookings.SeriesResult) seriesResponse {
	out := seriesResponse{
		SeriesID: r.SeriesID,
		Created:  r.Created,
		Complete: r.Complete(),
		Skipped:  make([]skippedResponse, 0, len(r.Skipped)),
		Bookings: make([]seriesBookingResponse, 0, len(r.Bookings)),
	}
	for _, s := range r.Skipped {
		out.Skipped = append(out.Skipped, skippedResponse{StartsAt: s.StartsAt.UTC(), Reason: s.Reason})
	}
	for _, b := range r.Bookings {
		out.Bookings = append(out.Bookings, seriesBookingResponse{ID: b.ID.String(), StartsAt: b.StartsAt.UTC()})
	}
	return out
}

type cancelSeriesResponse struct {
	SeriesID   string `json:"seriesId"`
	Affected   int    `json:"affected"`
	OnlyFuture bool   `json:"onlyFuture"`
}

type canceledOccurrenceResponse struct {
	CanceledID string    `json:"canceledId"`
	StartsAt   time.Time `json:"startsAt"`
}
