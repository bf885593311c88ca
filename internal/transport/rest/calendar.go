package rest

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/emersion/go-ical"

	"turnero/backend/internal/domain"
)

const calendarProductID = "-//turnero//bookings//ES"

// bookingsCalendar serves the bookings in range as an iCalendar feed.
func (h *handler) bookingsCalendar(w http.ResponseWriter, r *http.Request) {
	from, to, ok := h.rangeQuery(w, r)
	if !ok {
		return
	}
	rows, err := h.bookings.List(r.Context(), from, to)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(bookingsToCalendar(rows, time.Now().UTC())); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func bookingsToCalendar(rows []domain.Booking, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropProductID, calendarProductID)
	cal.Props.SetText(ical.PropVersion, "2.0")

	for _, b := range rows {
		event := ical.NewEvent()
		event.Props.SetText(ical.PropUID, b.ID.String())
		event.Props.SetDateTime(ical.PropDateTimeStamp, stamp)
		event.Props.SetDateTime(ical.PropDateTimeStart, b.StartsAt.UTC())
		event.Props.SetDateTime(ical.PropDateTimeEnd, domain.EndOf(b.StartsAt, b.DurationMinutes).UTC())
		event.Props.SetText(ical.PropSummary, eventSummary(b))
		event.Props.SetText(ical.PropStatus, eventStatus(b.Status))
		if b.Client != nil {
			event.Props.SetText(ical.PropDescription, b.Client.Name+" "+b.Client.Phone)
		}
		cal.Children = append(cal.Children, event.Component)
	}
	return cal
}

func eventSummary(b domain.Booking) string {
	summary := "Booking"
	if b.ServiceName != nil {
		summary = *b.ServiceName
	}
	if b.Client != nil {
		summary += " - " + b.Client.Name
	}
	return summary
}

func eventStatus(s domain.BookingStatus) string {
	if s == domain.BookingStatusCanceled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}
