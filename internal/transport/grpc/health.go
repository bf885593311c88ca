package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Probe reports whether the service's dependencies are reachable.
type Probe func(ctx context.Context) error

const defaultProbeInterval = 15 * time.Second

// HealthReporter keeps the health server in line with a dependency probe.
type HealthReporter struct {
	server   *health.Server
	probe    Probe
	interval time.Duration
	log      *slog.Logger
}

// NewHealthReporter returns a reporter; a nil probe always reports serving.
func NewHealthReporter(probe Probe, interval time.Duration, log *slog.Logger) *HealthReporter {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = defaultProbeInterval
	}
	return &HealthReporter{
		server:   health.NewServer(),
		probe:    probe,
		interval: interval,
		log:      log.With(slog.String("component", "grpc.health")),
	}
}

// Check runs the probe once and publishes the result.
func (h *HealthReporter) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	st := healthpb.HealthCheckResponse_SERVING
	if h.probe != nil {
		ctx, cancel := context.WithTimeout(ctx, h.interval)
		err := h.probe(ctx)
		cancel()
		if err != nil {
			h.log.WarnContext(ctx, "health probe failed", slog.Any("err", err))
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.server.SetServingStatus("", st)
	h.server.SetServingStatus(BookingsService, st)
	return st
}

// Run probes on every interval until ctx is done, then marks everything
// NOT_SERVING.
func (h *HealthReporter) Run(ctx context.Context) {
	h.Check(ctx)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}
