package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/sumire/hiring/internal/config"
	"github.com/sumire/hiring/internal/handler"
	"github.com/sumire/hiring/internal/lock"
	"github.com/sumire/hiring/internal/notify"
	"github.com/sumire/hiring/internal/policy"
	"github.com/sumire/hiring/internal/repository"
	"github.com/sumire/hiring/internal/scoring"
	"github.com/sumire/hiring/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

type stores struct {
	jobs       service.JobStore
	apps       service.ApplicationStore
	interviews service.InterviewStore
	users      service.UserStore
	close      func() error
}

func openStores(cfg config.Config) (stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		return stores{
			jobs:       repository.NewMemoryJobRepository(),
			apps:       repository.NewMemoryApplicationRepository(),
			interviews: repository.NewMemoryInterviewRepository(),
			users:      repository.NewMemoryUserRepository(),
			close:      func() error { return nil },
		}, nil
	}

	db, err := sqlx.Connect("pgx", cfg.DatabaseURL)
	if err != nil {
		return stores{}, fmt.Errorf("connect database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("database connected")

	return stores{
		jobs:       repository.NewJobRepository(db),
		apps:       repository.NewApplicationRepository(db),
		interviews: repository.NewInterviewRepository(db),
		users:      repository.NewUserRepository(db),
		close:      db.Close,
	}, nil
}

func newLocker(ctx context.Context, cfg config.Config) (lock.Locker, func() error, error) {
	if cfg.RedisURL == "" {
		return lock.NewLocal(), func() error { return nil }, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	slog.Info("redis connected, using distributed interviewer locks")
	return lock.NewRedis(client, cfg.LockTTL, "hiring:lock"), client.Close, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.close()

	locker, closeLocker, err := newLocker(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	policies, err := policy.LoadFile(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	var notifier service.Notifier = notify.Log{}
	var webhook *notify.Webhook
	if cfg.WebhookURL != "" {
		webhook = notify.NewWebhook(cfg.WebhookURL, cfg.NotifyTimeout)
		notifier = webhook
	}

	var scorer service.ScoringOracle
	if cfg.ScoringURL != "" {
		scorer = scoring.NewClient(cfg.ScoringURL, cfg.ScoringTimeout)
	}

	opts := []service.Option{service.WithNotifier(notifier)}
	roles := policies.Roles()

	authSvc := service.NewAuthService(st.users, service.AuthConfig{
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		GitHubClientID:     cfg.GitHubClientID,
		GitHubClientSecret: cfg.GitHubClientSecret,
		JWTSecret:          cfg.JWTSecret,
		FrontendURL:        cfg.FrontendURL,
	})
	requisitions := service.NewRequisitionService(st.jobs, policies, roles, opts...)
	tracker := service.NewApplicationService(st.apps, st.jobs, roles, scorer, cfg.ScoringTimeout, opts...)
	scheduler := service.NewInterviewService(st.interviews, tracker, roles, locker, opts...)

	e := handler.NewRouter(handler.RouterConfig{
		Tokens:         authSvc,
		Auth:           handler.NewAuthHandler(authSvc),
		Jobs:           handler.NewJobHandler(requisitions),
		Applications:   handler.NewApplicationHandler(tracker),
		Interviews:     handler.NewInterviewHandler(scheduler),
		AllowedOrigins: []string{cfg.FrontendURL},
		ApplyRateLimit: cfg.ApplyRateLimit,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	if webhook != nil {
		webhook.Wait()
	}

	slog.Info("server stopped gracefully")
	return nil
}
