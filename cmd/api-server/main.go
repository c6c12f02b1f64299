package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/glowtide/spa-booking-engine/internal/api"
	"github.com/glowtide/spa-booking-engine/internal/booking"
	"github.com/glowtide/spa-booking-engine/internal/config"
	"github.com/glowtide/spa-booking-engine/internal/db"
	"github.com/glowtide/spa-booking-engine/internal/notify"
	"github.com/glowtide/spa-booking-engine/internal/observability/logging"
	"github.com/glowtide/spa-booking-engine/internal/observability/metrics"
	redisclient "github.com/glowtide/spa-booking-engine/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.Env, "api-server")
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, db.PoolConfig{
		DSN:      cfg.PostgresDSN,
		MaxConns: cfg.PgMaxConns,
		MinConns: cfg.PgMinConns,
	})
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewClient(redisclient.Options{
		Addr:      cfg.RedisAddr,
		Username:  cfg.RedisUsername,
		Password:  cfg.RedisPassword,
		PoolSize:  cfg.RedisPoolSize,
		OpTimeout: cfg.RedisOpTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Error().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	metrics.Register()

	var notifier notify.Notifier
	if sg := notify.NewSendGridNotifier(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.NotifyFromEmail,
		FromName:  cfg.NotifyFromName,
	}, log); sg != nil {
		notifier = sg
	} else {
		log.Info().Msg("no SendGrid API key, confirmations are log-only")
		notifier = notify.NewLogNotifier(log)
	}

	repo := booking.NewPgRepository(pgPool)
	locker := redisclient.NewRedisBookingLocker(rdb, cfg.LockTTL)
	dispatcher := notify.NewDispatcher(notifier, log)
	svc := booking.NewService(repo, locker, dispatcher, cfg.BookingTTL, log)

	sessions := booking.NewSessionStore(cfg.SessionTTL)
	go cleanupSessions(rootCtx, sessions, log)

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Sessions: sessions,
		PgPool:   pgPool,
		Redis:    rdb,
		Env:      cfg.Env,
		Version:  version,
		Log:      log,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	case <-rootCtx.Done():
	}

	log.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func cleanupSessions(ctx context.Context, sessions *booking.SessionStore, log zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := sessions.Cleanup(); removed > 0 {
				log.Debug().Int("removed", removed).Msg("cleaned up expired booking sessions")
			}
		}
	}
}
