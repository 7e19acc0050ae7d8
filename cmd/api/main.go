package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/utils/clock"

	"example.com/workouts/internal/api"
	"example.com/workouts/internal/auth"
	"example.com/workouts/internal/config"
	"example.com/workouts/internal/controller"
	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/events"
	"example.com/workouts/internal/geolocation"
	"example.com/workouts/internal/mapview"
	"example.com/workouts/internal/persistence/memory"
	"example.com/workouts/internal/persistence/postgres"
	"example.com/workouts/internal/persistence/redis"
	"example.com/workouts/internal/persistence/sqlite"
	httptransport "example.com/workouts/internal/transport/http"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error(ctx, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	blobs, closeBlobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlobs()

	clk := clock.RealClock{}
	factory := domain.NewFactory(domain.UUIDGenerator{}, clk)
	store := domain.NewStore(blobs,
		domain.WithKey(cfg.StorageKey),
		domain.WithCodec(domain.NewCodec(factory, cfg.Identity)),
		domain.WithClock(clk))

	var locator controller.Locator = geolocation.Unavailable{}
	if cfg.HomeCoords != nil {
		locator = geolocation.Static{Coords: *cfg.HomeCoords}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		writer := events.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		publisher = events.NewKafkaPublisher(writer, cfg.WorkoutEventsTopic, clk)
	}

	board := mapview.NewBoard()
	ctrl := controller.New(store, factory, board, locator,
		controller.WithPublisher(publisher),
		controller.WithClock(clk))

	report := ctrl.Start(ctx)
	log.Info(ctx, "workouts restored",
		j.KV("backend", cfg.StorageBackend),
		j.KV("loaded", report.Loaded),
		j.KV("skipped", len(report.Skipped)))

	handler := api.NewHandler(ctrl, board)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := auth.NewMiddleware(
		auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
		auth.SkipPaths("/healthz", "/metrics"),
	)

	server := httptransport.NewServer(httptransport.ServerConfig{Address: cfg.HTTPAddress},
		httptransport.Logging(authMiddleware.Wrap(mux)))
	httptransport.Serve(ctx, "api", server)

	<-ctx.Done()
	log.Info(context.Background(), "shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "graceful shutdown failed")
	}
	return nil
}

func openBlobStore(ctx context.Context, cfg config.Config) (domain.BlobStore, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		client := redis.Connect(redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		if client == nil {
			return nil, nil, errors.New("REDIS_ADDR is required for the redis backend")
		}
		return redis.NewBlobStore(client, cfg.StorageNamespace), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewRepository(pool, cfg.StorageNamespace), pool.Close, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath, cfg.StorageNamespace)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	}
	return memory.NewBlobStore(), func() {}, nil
}
