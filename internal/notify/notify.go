// Package notify delivers text messages to clients.
package notify

import (
	"context"
	"log/slog"
)

// Receipt acknowledges one delivery attempt.
type Receipt struct {
	ID        string
	Status    string
	Simulated bool
}

// Notifier sends body to the destination address. Implementations do not
// retry.
type Notifier interface {
	Send(ctx context.Context, to, body string) (Receipt, error)
}

// LogNotifier only logs messages. It stands in for a real channel when
// delivery is disabled or not configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With(slog.String("component", "notify.simulated"))}
}

func (n *LogNotifier) Send(ctx context.Context, to, body string) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}
	n.log.InfoContext(ctx, "simulated message", slog.String("to", to), slog.String("body", body))
	return Receipt{Status: "simulated", Simulated: true}, nil
}
