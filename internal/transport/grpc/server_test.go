package grpc

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, reporter *HealthReporter) healthpb.HealthClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := NewServer(reporter, time.Second, nil)
	go func() {
		_ = s.Serve(lis)
	}()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return healthpb.NewHealthClient(conn)
}

func TestHealth_FollowsProbe(t *testing.T) {
	var failing atomic.Bool
	reporter := NewHealthReporter(func(ctx context.Context) error {
		if failing.Load() {
			return errors.New("db down")
		}
		return nil
	}, time.Second, nil)
	client := startServer(t, reporter)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if got := reporter.Check(ctx); got != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("Check() = %v, want SERVING", got)
	}
	for _, svc := range []string{"", BookingsService} {
		resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("Check(%q) error: %v", svc, err)
		}
		if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("Check(%q) status = %v, want SERVING", svc, resp.GetStatus())
		}
	}

	failing.Store(true)
	reporter.Check(ctx)
	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: BookingsService})
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", resp.GetStatus())
	}
}

func TestRequestTimeoutInterceptor(t *testing.T) {
	interceptor := RequestTimeoutInterceptor(50 * time.Millisecond)
	info := &grpc.UnaryServerInfo{FullMethod: "/test/Method"}

	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req any) (any, error) {
		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatalf("expected a deadline")
		}
		if time.Until(deadline) > 50*time.Millisecond {
			t.Fatalf("deadline too far: %v", time.Until(deadline))
		}
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor error: %v", err)
	}

	parent, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()
	want, _ := parent.Deadline()
	_, _ = interceptor(parent, nil, info, func(ctx context.Context, req any) (any, error) {
		got, _ := ctx.Deadline()
		if !got.Equal(want) {
			t.Fatalf("existing deadline replaced: got %v want %v", got, want)
		}
		return nil, nil
	})
}
