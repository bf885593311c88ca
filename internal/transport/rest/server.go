// Package rest exposes bookings and clients over HTTP/JSON.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/service/bookings"
	"turnero/backend/internal/service/clients"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	maxBodyBytes         = 1 << 20
)

type BookingService interface {
	Create(ctx context.Context, in bookings.CreateInput) (domain.Booking, error)
	Update(ctx context.Context, id uuid.UUID, in bookings.UpdateInput) (domain.Booking, error)
	Cancel(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	Complete(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	List(ctx context.Context, from, to *time.Time) ([]domain.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Booking, error)
	CreateRecurring(ctx context.Context, in bookings.RecurringInput) (bookings.SeriesResult, error)
	CancelSeries(ctx context.Context, seriesID string, onlyFuture bool) (bookings.CancelSeriesResult, error)
	CancelOneInSeries(ctx context.Context, seriesID, date, clock string) (bookings.CanceledOccurrence, error)
	Location() *time.Location
}

type ClientService interface {
	List(ctx context.Context) ([]domain.Client, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Client, error)
	Create(ctx context.Context, in clients.Input) (domain.Client, error)
	Update(ctx context.Context, id uuid.UUID, patch clients.Patch) (domain.Client, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RouterConfig struct {
	CORSOrigins    []string
	RequestTimeout time.Duration
	// Ready, when set, backs the health endpoints; an error reports 503.
	Ready func(ctx context.Context) error
}

type handler struct {
	bookings BookingService
	clients  ClientService
	ready    func(ctx context.Context) error
	validate *validator.Validate
	logger   *slog.Logger
}

func NewRouter(cfg RouterConfig, bookingSvc BookingService, clientSvc ClientService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{
		bookings: bookingSvc,
		clients:  clientSvc,
		ready:    cfg.Ready,
		validate: newValidator(),
		logger:   logger.With(slog.String("component", "http")),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(NewCORSHandler(cfg.CORSOrigins))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/health", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/bookings.ics", h.bookingsCalendar)

		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.listBookings)
			r.Post("/", h.createBooking)
			r.Post("/recurring", h.createRecurring)
			r.Post("/series/{seriesID}/cancel", h.cancelSeries)
			r.Post("/series/{seriesID}/cancel-one", h.cancelOneInSeries)
			r.Get("/{id}", h.getBooking)
			r.Put("/{id}", h.updateBooking)
			r.Post("/{id}/cancel", h.cancelBooking)
			r.Post("/{id}/complete", h.completeBooking)
		})

		r.Route("/clients", func(r chi.Router) {
			r.Get("/", h.listClients)
			r.Post("/", h.createClient)
			r.Get("/{id}", h.getClient)
			r.Put("/{id}", h.updateClient)
			r.Delete("/{id}", h.deleteClient)
		})
	})
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "readiness check failed", slog.Any("error", err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads a JSON body into dst and runs struct validation. It writes
// the 400 response itself and reports whether the handler may continue.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", formatValidationError(err))
		return false
	}
	return true
}

func formatValidationError(err error) string {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		field := strings.TrimPrefix(e.Namespace(), strings.SplitN(e.Namespace(), ".", 2)[0]+".")
		if e.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, e.Tag(), e.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", field, e.Tag()))
	}
	return strings.Join(msgs, ", ")
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
