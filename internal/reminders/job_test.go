package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turnero/backend/internal/domain"
	"turnero/backend/internal/notify"
	"turnero/backend/internal/phone"
	"turnero/backend/internal/service/bookings"
	"turnero/backend/internal/service/clients"
	"turnero/backend/internal/store/memory"
)

var art = time.FixedZone("ART", -3*60*60)

type fakeSource struct {
	listFn func(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
}

func (f *fakeSource) ListScheduled(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	return f.listFn(ctx, from, to)
}

type sent struct {
	to, body string
}

type fakeNotifier struct {
	sent   []sent
	failTo string
}

func (f *fakeNotifier) Send(ctx context.Context, to, body string) (notify.Receipt, error) {
	if to == f.failTo {
		return notify.Receipt{}, errors.New("delivery failed")
	}
	f.sent = append(f.sent, sent{to: to, body: body})
	return notify.Receipt{ID: "r"}, nil
}

func booking(name, phoneNumber string, start time.Time, service *string) domain.Booking {
	return domain.Booking{
		ID:              uuid.New(),
		StartsAt:        start.UTC(),
		DurationMinutes: 30,
		ServiceName:     service,
		Status:          domain.BookingStatusScheduled,
		Client:          &domain.Client{Name: name, Phone: phoneNumber},
	}
}

func TestRunOnce_QueriesTomorrowAndIsolatesFailures(t *testing.T) {
	now := time.Date(2026, 3, 9, 22, 30, 0, 0, art)
	cut := "Corte"

	var gotFrom, gotTo time.Time
	src := &fakeSource{listFn: func(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
		gotFrom, gotTo = from, to
		return []domain.Booking{
			booking("Ana", "+5491100000001", time.Date(2026, 3, 10, 9, 0, 0, 0, art), &cut),
			booking("Beto", "+5491100000002", time.Date(2026, 3, 10, 10, 0, 0, 0, art), nil),
			booking("Caro", "+5491100000003", time.Date(2026, 3, 10, 11, 0, 0, 0, art), nil),
			{ID: uuid.New(), StartsAt: time.Date(2026, 3, 10, 12, 0, 0, 0, art)},
		}, nil
	}}
	n := &fakeNotifier{failTo: "whatsapp:+5491100000002"}

	job := NewJob(src, n, Config{Location: art, Now: func() time.Time { return now }})
	sum, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	assert.True(t, gotFrom.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, art)))
	assert.True(t, gotTo.Equal(time.Date(2026, 3, 10, 23, 59, 59, int(999*time.Millisecond), art)))

	assert.Equal(t, Summary{Total: 4, Sent: 2, Failed: 2}, sum)
	require.Len(t, n.sent, 2)
	assert.Equal(t, "whatsapp:+5491100000001", n.sent[0].to)
	assert.Equal(t, "¡Hola Ana! Te recordamos tu turno de Corte para mañana 10/03/2026 a las 09:00. Si no podés asistir, avisá por este medio.", n.sent[0].body)
	assert.Equal(t, "whatsapp:+5491100000003", n.sent[1].to)
}

func TestRunOnce_SourceFailure(t *testing.T) {
	boom := errors.New("db down")
	src := &fakeSource{listFn: func(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
		return nil, boom
	}}
	n := &fakeNotifier{}
	_, err := NewJob(src, n, Config{Location: art}).RunOnce(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, n.sent)
}

func TestSpec(t *testing.T) {
	assert.Equal(t, "0 10 * * *", Spec(DefaultHour, ""))
	assert.Equal(t, "0 7 * * *", Spec(7, ""))
	assert.Equal(t, "*/5 * * * *", Spec(7, "*/5 * * * *"))
}

func TestNewScheduler(t *testing.T) {
	src := &fakeSource{listFn: func(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
		return nil, nil
	}}
	job := NewJob(src, &fakeNotifier{}, Config{Location: art})

	s, err := NewScheduler(job, Spec(10, ""))
	require.NoError(t, err)
	next := s.Next()
	assert.Equal(t, art.String(), next.Location().String())
	assert.Equal(t, 10, next.Hour())
	assert.Equal(t, 0, next.Minute())
	assert.True(t, next.After(time.Now()))

	_, err = NewScheduler(job, "not a cron spec")
	assert.Error(t, err)
}

func TestRunOnce_WithBookingService(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 9, 8, 0, 0, 0, art)
	mem := memory.New()
	clientSvc := clients.NewService(mem, phone.NewNormalizer("+54", true), nil)
	svc := bookings.NewService(mem, clientSvc, bookings.Config{Location: art, Now: func() time.Time { return now }})

	ana := clients.Ref{Client: &clients.Input{Name: "Ana", Phone: "11 2345-6789"}}
	for _, start := range []time.Time{
		time.Date(2026, 3, 9, 18, 0, 0, 0, art),  // today
		time.Date(2026, 3, 10, 9, 30, 0, 0, art), // tomorrow
		time.Date(2026, 3, 11, 9, 30, 0, 0, art), // day after
	} {
		_, err := svc.Create(ctx, bookings.CreateInput{Client: ana, StartsAt: start, DurationMinutes: 30})
		require.NoError(t, err)
	}

	n := &fakeNotifier{}
	sum, err := NewJob(svc, n, Config{Location: art, Now: func() time.Time { return now }}).RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Total: 1, Sent: 1}, sum)
	require.Len(t, n.sent, 1)
	assert.Equal(t, "whatsapp:+5491123456789", n.sent[0].to)
	assert.Contains(t, n.sent[0].body, "mañana 10/03/2026 a las 09:30")
}

func TestSchedulerNext_IgnoresProcessZone(t *testing.T) {
	prev := time.Local
	time.Local = time.UTC
	t.Cleanup(func() { time.Local = prev })

	src := &fakeSource{listFn: func(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
		return nil, nil
	}}
	job := NewJob(src, &fakeNotifier{}, Config{Location: art})
	s, err := NewScheduler(job, Spec(10, ""))
	require.NoError(t, err)

	next := s.Next()
	assert.Equal(t, 10, next.In(art).Hour())
	assert.Equal(t, 13, next.UTC().Hour())
}
