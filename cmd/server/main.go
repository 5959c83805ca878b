package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/actuallystonmai/viewing-service/internal/auth"
	"github.com/actuallystonmai/viewing-service/internal/cache"
	"github.com/actuallystonmai/viewing-service/internal/config"
	"github.com/actuallystonmai/viewing-service/internal/events"
	"github.com/actuallystonmai/viewing-service/internal/feed"
	"github.com/actuallystonmai/viewing-service/internal/handler"
	"github.com/actuallystonmai/viewing-service/internal/logging"
	"github.com/actuallystonmai/viewing-service/internal/memstore"
	"github.com/actuallystonmai/viewing-service/internal/repository"
	"github.com/actuallystonmai/viewing-service/internal/router"
	"github.com/actuallystonmai/viewing-service/internal/service"
	"github.com/actuallystonmai/viewing-service/internal/telemetry"
	"github.com/actuallystonmai/viewing-service/migrations"
	"github.com/actuallystonmai/viewing-service/seeds"
	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	for _, w := range cfg.Warnings() {
		logging.Warn().Str("store", cfg.StoreDriver).Msg(w)
	}

	authn := auth.NewAuthenticator(cfg.JWTSecret)

	// dev helper: `server token <userId>` prints a bearer token
	if len(os.Args) > 2 && os.Args[1] == "token" {
		token, err := authn.Issue(os.Args[2], 24*time.Hour)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to issue token")
		}
		fmt.Println(token)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ------------ Tracing ---------------
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.OtelEndpoint)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to init tracer")
	}
	defer shutdownTracer(context.Background())

	// ------------ Storage ---------------
	var store service.Store
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logging.Warn().Msg("using in-memory store, data is lost on restart")
		store = memstore.New()
	default:
		pool, err := connectPostgres(ctx, cfg)
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		logging.Info().Msg("connected to PostgreSQL")

		// ------------ Run Migrations ---------------
		// for migrate-down using CLI command
		if len(os.Args) > 1 && os.Args[1] == "migrate-down" {
			if err := migrate(ctx, pool, migrations.Down); err != nil {
				logging.Fatal().Err(err).Msg("failed to migrate down")
			}
			logging.Info().Msg("migrations dropped")
			return
		}
		if err := migrate(ctx, pool, migrations.Up); err != nil {
			logging.Fatal().Err(err).Msg("failed to migrate up")
		}
		logging.Info().Msg("migrations applied")

		store = repository.NewRepository(pool)
	}

	// ------------ Redis ---------------
	var membership service.MembershipCache = cache.Nop{}
	if rdb := connectRedis(ctx, cfg.RedisURL); rdb != nil {
		defer rdb.Close()
		membership = cache.NewCache(rdb, cfg.CacheTTL)
	}

	// ------------ NATS ---------------
	var publisher service.Publisher = events.Nop{}
	if cfg.NatsURL != "" {
		nc, err := nats.Connect(cfg.NatsURL, nats.Name(telemetry.ServiceName))
		if err != nil {
			logging.Warn().Err(err).Msg("NATS unavailable, events disabled")
		} else {
			defer nc.Drain()
			publisher = events.NewNatsPublisher(nc)
			logging.Info().Str("url", cfg.NatsURL).Msg("connected to NATS")
		}
	}

	svc := service.NewService(store, membership, publisher, feed.NewCodec(cfg.CursorSecret), cfg.QueryTimeout)

	// ------------ Setup Seed Data ---------------
	if cfg.Seed {
		if err := checkSeed(ctx, svc); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed")
		}
	}

	// ---------------- Server --------------------
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.Setup(handler.NewHandler(svc), authn, cfg.RequestTimeout),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Str("store", cfg.StoreDriver).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func connectPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBPoolSize)
	poolConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := waitForDB(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func waitForDB(ctx context.Context, pool *pgxpool.Pool) error {
	for i := 0; i < 30; i++ {
		if err := pool.Ping(ctx); err == nil {
			return nil
		}
		logging.Info().Msgf("waiting for database... (%d/30)", i+1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return fmt.Errorf("database connection timeout after 30s")
}

func migrate(ctx context.Context, pool *pgxpool.Pool, sql string) error {
	if _, err := pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("execute migration: %w", err)
	}
	return nil
}

// connectRedis returns nil when Redis is not configured or not reachable.
// The membership cache is optional.
func connectRedis(ctx context.Context, url string) *redis.Client {
	if url == "" {
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		logging.Warn().Err(err).Msg("invalid REDIS_URL, membership cache disabled")
		return nil
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logging.Warn().Err(err).Msg("Redis unavailable, membership cache disabled")
		rdb.Close()
		return nil
	}
	logging.Info().Msg("connected to Redis")
	return rdb
}

func checkSeed(ctx context.Context, svc *service.Service) error {
	existing, err := svc.ListCircles(ctx, seeds.Users[0])
	if err != nil {
		return fmt.Errorf("check seed: %w", err)
	}
	if len(existing) > 0 {
		logging.Info().Int("circles", len(existing)).Msg("database already seeded, skipping")
		return nil
	}
	return seeds.Setup(ctx, svc)
}
