package rest

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/mo"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/service/bookings"
	"turnero/backend/internal/service/clients"
)

func (h *handler) listBookings(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.bookings.List(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	out := make([]bookingResponse, 0, len(rows))
	for _, b := range rows {
		out = append(out, toBookingResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := h.bookings.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *handler) createBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !h.decode(w, r, &req) {
		return
	}
	startsAt, err := parseInstant(req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "startsAt must be an ISO-8601 date-time")
		return
	}

	b, err := h.bookings.Create(r.Context(), bookings.CreateInput{
		Client:          clientRef(req.ClientID, req.Client),
		StartsAt:        startsAt,
		DurationMinutes: req.DurationMinutes,
		ServiceName:     req.ServiceName,
		IdempotencyKey:  r.Header.Get(idempotencyKeyHeader),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBookingResponse(b))
}

func (h *handler) updateBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateBookingRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := bookings.UpdateInput{
		DurationMinutes: optional(req.DurationMinutes),
		ServiceName:     mo.None[*string](),
	}
	if req.ServiceName != nil {
		in.ServiceName = mo.Some(req.ServiceName)
	}
	if req.Status != nil {
		in.Status = mo.Some(domain.BookingStatus(*req.Status))
	}
	if req.StartsAt != nil {
		startsAt, err := parseInstant(*req.StartsAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "startsAt must be an ISO-8601 date-time")
			return
		}
		in.StartsAt = mo.Some(startsAt)
	}
	if req.ClientID != nil || req.Client != nil {
		in.Client = mo.Some[clients.Ref](clientRef(req.ClientID, req.Client))
	}

	b, err := h.bookings.Update(r.Context(), id, in)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *handler) cancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Cancel)
}

func (h *handler) completeBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Complete)
}

func (h *handler) transition(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id uuid.UUID) (domain.Booking, error)) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	b, err := apply(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *handler) createRecurring(w http.ResponseWriter, r *http.Request) {
	var req recurringRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.bookings.CreateRecurring(r.Context(), bookings.RecurringInput{
		Client:          clientRef(req.ClientID, req.Client),
		StartDate:       req.StartDate,
		Time:            req.Time,
		Interval:        domain.IntervalType(req.IntervalType),
		Count:           req.Count,
		UntilDate:       req.UntilDate,
		DurationMinutes: req.DurationMinutes,
		ServiceName:     req.ServiceName,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSeriesResponse(res))
}

func (h *handler) cancelSeries(w http.ResponseWriter, r *http.Request) {
	onlyFuture := true
	if raw := strings.TrimSpace(r.URL.Query().Get("onlyFuture")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "onlyFuture must be true or false")
			return
		}
		onlyFuture = v
	}

	res, err := h.bookings.CancelSeries(r.Context(), chi.URLParam(r, "seriesID"), onlyFuture)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelSeriesResponse{SeriesID: res.SeriesID, Affected: res.Affected, OnlyFuture: res.OnlyFuture})
}

func (h *handler) cancelOneInSeries(w http.ResponseWriter, r *http.Request) {
	var req cancelOneRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.bookings.CancelOneInSeries(r.Context(), chi.URLParam(r, "seriesID"), req.Date, req.Time)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, canceledOccurrenceResponse{CanceledID: res.ID.String(), StartsAt: res.StartsAt.UTC()})
}

// rangeQuery reads optional from/to query parameters. Plain dates cover the
// whole local day.
func (h *handler) rangeQuery(w http.ResponseWriter, r *http.Request) (*time.Time, *time.Time, bool) {
	loc := h.bookings.Location()
	var from, to *time.Time

	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := parseBound(raw, loc, false)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "from must be YYYY-MM-DD or an ISO-8601 date-time")
			return nil, nil, false
		}
		from = &t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := parseBound(raw, loc, true)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "to must be YYYY-MM-DD or an ISO-8601 date-time")
			return nil, nil, false
		}
		to = &t
	}
	return from, to, true
}

func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if len(raw) == len(domain.DateLayout) {
		d, err := domain.ParseLocalDate(raw, loc)
		if err != nil {
			return time.Time{}, err
		}
		if endOfDay {
			return domain.EndOfDay(d), nil
		}
		return domain.StartOfDay(d), nil
	}
	return parseInstant(raw)
}

func parseInstant(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}
