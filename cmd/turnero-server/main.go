package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"turnero/backend/internal/config"
	"turnero/backend/internal/notify"
	"turnero/backend/internal/phone"
	"turnero/backend/internal/reminders"
	"turnero/backend/internal/service/bookings"
	"turnero/backend/internal/service/clients"
	"turnero/backend/internal/store"
	"turnero/backend/internal/store/memory"
	"turnero/backend/internal/store/postgres"
	grpcTransport "turnero/backend/internal/transport/grpc"
	"turnero/backend/internal/transport/rest"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With(
		slog.String("service", "turnero-server"),
	)
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}

	log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)})).With(
		slog.String("service", "turnero-server"),
	)
	slog.SetDefault(log)

	log.Info("starting",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("grpc_addr", cfg.GRPCAddr),
		slog.String("storage", cfg.StorageDriver),
		slog.String("tz", cfg.Location.String()),
		slog.String("log_level", cfg.LogLevel),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		bookingRepo store.BookingRepository
		clientRepo  store.ClientRepository
		ready       func(ctx context.Context) error
	)
	switch cfg.StorageDriver {
	case config.DriverMemory:
		mem := memory.New()
		bookingRepo, clientRepo = mem, mem
		log.Warn("using in-memory storage; data is lost on restart")
	default:
		log.Info("connecting to database", databaseLogArgs(cfg.DatabaseURL)...)
		db, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
			ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
			Migrate:         cfg.DBMigrate,
			Logger:          log,
		})
		if err != nil {
			args := append([]any{slog.Any("err", err)}, databaseLogArgs(cfg.DatabaseURL)...)
			log.Error("database startup failed", args...)
			os.Exit(1)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Warn("database close failed", slog.Any("err", err))
			}
		}()

		bookingRepo, clientRepo = postgres.NewBookingRepo(db), postgres.NewClientRepo(db)
		ready = db.PingContext
	}

	clientSvc := clients.NewService(clientRepo, phone.NewNormalizer(cfg.PhoneCountryCode, cfg.PhoneAddMobileNine), log)
	bookingSvc := bookings.NewService(bookingRepo, clientSvc, bookings.Config{
		Location:             cfg.Location,
		MaxOccurrences:       cfg.MaxOccurrences,
		OverlapScanWindow:    cfg.OverlapScanWindow,
		SeriesMatchTolerance: cfg.SeriesMatchTolerance,
		Logger:               log,
	})

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: rest.NewRouter(rest.RouterConfig{
			CORSOrigins:    cfg.CORSOrigins,
			RequestTimeout: cfg.HTTPRequestTimeout,
			Ready:          ready,
		}, bookingSvc, clientSvc, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.HTTPRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()
	log.Info("http server started", slog.String("http_addr", cfg.HTTPAddr))

	var grpcServer *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Error("grpc listen failed", slog.Any("err", err), slog.String("grpc_addr", cfg.GRPCAddr))
			os.Exit(1)
		}
		reporter := grpcTransport.NewHealthReporter(grpcTransport.Probe(ready), 0, log)
		go reporter.Run(ctx)

		grpcServer = grpcTransport.NewServer(reporter, cfg.HTTPRequestTimeout, log)
		go func() {
			errCh <- grpcServer.Serve(lis)
		}()
		log.Info("grpc server started", slog.String("grpc_addr", cfg.GRPCAddr))
	}

	var scheduler *reminders.Scheduler
	if cfg.RemindersEnabled {
		notifier := notify.NewNotifier(notify.TwilioConfig{
			Enabled:      cfg.TwilioEnabled,
			AccountSID:   cfg.TwilioAccountSID,
			AuthToken:    cfg.TwilioAuthToken,
			WhatsAppFrom: cfg.TwilioWhatsAppFrom,
		}, log)
		job := reminders.NewJob(bookingSvc, notifier, reminders.Config{Location: cfg.Location, Logger: log})
		scheduler, err = reminders.NewScheduler(job, reminders.Spec(cfg.RemindersHour, cfg.RemindersSchedule))
		if err != nil {
			log.Error("reminder scheduler failed", slog.Any("err", err))
			os.Exit(1)
		}
		scheduler.Start()
		log.Info("reminders started", slog.Time("next_run", scheduler.Next()))
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("server stopped with error", slog.Any("err", err))
			exitCode = 1
		}
		stop()
	}

	shutdown(log, httpServer, grpcServer, scheduler, cfg.ShutdownTimeout)
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func shutdown(log *slog.Logger, httpServer *http.Server, grpcServer *grpc.Server, scheduler *reminders.Scheduler, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if scheduler != nil {
		select {
		case <-scheduler.Stop().Done():
		case <-ctx.Done():
			log.Warn("reminder run still in progress at shutdown")
		}
	}

	log.Info("shutting down http server", slog.Duration("timeout", timeout))
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Warn("http graceful shutdown failed; closing", slog.Any("err", err))
		_ = httpServer.Close()
	}

	if grpcServer != nil {
		grpcTransport.Shutdown(log, grpcServer, timeout)
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func databaseLogArgs(databaseURL string) []any {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return []any{slog.String("db_url", "invalid")}
	}
	name := strings.TrimPrefix(u.Path, "/")
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "default"
	}
	if host == "" {
		host = "unknown"
	}
	if name == "" {
		name = "unknown"
	}
	return []any{
		slog.String("db_host", host),
		slog.String("db_port", port),
		slog.String("db_name", name),
	}
}
