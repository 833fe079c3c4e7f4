// Command server runs the QuickTask API: user registration and
// authentication, per-owner task CRUD, and the reminder scheduling and
// delivery subsystem.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/quicktask/quicktask-api/internal/config"
	"github.com/quicktask/quicktask-api/internal/events"
	"github.com/quicktask/quicktask-api/internal/platform/logger"
	"github.com/quicktask/quicktask-api/internal/platform/mail"
	"github.com/quicktask/quicktask-api/internal/platform/memory"
	"github.com/quicktask/quicktask-api/internal/platform/postgres"
	"github.com/quicktask/quicktask-api/internal/reminder"
	"github.com/quicktask/quicktask-api/internal/reminder/redisq"
	"github.com/quicktask/quicktask-api/internal/service/auth"
	"github.com/quicktask/quicktask-api/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server)
	log.Info("configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"database_backend", cfg.Database.Backend,
		"queue_backend", cfg.Queue.Backend)

	ctx := context.Background()

	// Storage.
	var (
		userStore store.UserStore
		taskStore store.TaskStore
	)
	switch cfg.Database.Backend {
	case "postgres":
		db, err := sql.Open("pgx", cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer func() { _ = db.Close() }()

		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to ping database: %w", err)
		}

		if err := postgres.Migrate(ctx, db); err != nil {
			return err
		}

		userStore = postgres.NewUserStore(db, log)
		taskStore = postgres.NewTaskStore(db, log)
	case "memory":
		log.Warn("using in-memory storage, all data is lost on shutdown")
		userStore = memory.NewUserStore()
		taskStore = memory.NewTaskStore()
	default:
		return fmt.Errorf("unknown database backend %q", cfg.Database.Backend)
	}

	// Identity.
	jwtService, err := auth.NewJWTService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to create JWT service: %w", err)
	}
	hasher := auth.NewBcryptHasher(0)

	// Reminder queue and worker.
	mailer := mail.NewLogMailer(log)

	var (
		queue     reminder.Queue
		stopQueue func()
	)
	switch cfg.Queue.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Queue.RedisAddr})
		defer func() { _ = client.Close() }()

		rq := redisq.New(client, mailer, redisq.Config{
			WorkerCount:      cfg.Queue.WorkerCount,
			DeliveryAttempts: cfg.Queue.DeliveryAttempts,
		}, log)
		rq.Start()
		queue, stopQueue = rq, rq.Stop
	case "memory":
		mq := reminder.NewMemQueue(mailer, reminder.MemQueueConfig{
			WorkerCount:      cfg.Queue.WorkerCount,
			DeliveryAttempts: cfg.Queue.DeliveryAttempts,
			RetryBaseDelay:   time.Second,
		}, log)
		mq.Start()
		queue, stopQueue = mq, mq.Stop
	default:
		return fmt.Errorf("unknown queue backend %q", cfg.Queue.Backend)
	}

	scheduler := reminder.NewScheduler(
		queue,
		time.Duration(cfg.Queue.EnqueueTimeoutSeconds)*time.Second,
		log,
	)

	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(reminder.NewEventHandler(scheduler, log))

	router := newRouter(userStore, taskStore, jwtService, hasher, emitter, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting HTTP server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		stopQueue()
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-stop:
		log.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", "error", err)
	}

	// The queue stops last so jobs already past due still get delivered.
	stopQueue()

	log.Info("server stopped cleanly")
	return nil
}
