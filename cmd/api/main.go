package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/marathon/internal/api"
	"example.com/marathon/internal/auth"
	"example.com/marathon/internal/config"
	"example.com/marathon/internal/domain"
	"example.com/marathon/internal/events"
	"example.com/marathon/internal/logging"
	"example.com/marathon/internal/persistence/memory"
	"example.com/marathon/internal/persistence/mongodb"
	"example.com/marathon/internal/persistence/postgres"
	httptransport "example.com/marathon/internal/transport/http"
)

// store is satisfied by every persistence backend.
type store interface {
	domain.RunningLogStore
	domain.MarathonStore
	domain.ApplicationStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if cfg.Auth.UsesDefaultSecret() {
		logging.Warn().Msg("JWT_SECRET is not set; using the development secret, tokens can be forged")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}
	defer closeStore()

	var publisher domain.EventPublisher = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := events.NewKafkaProducer(cfg.Kafka.Brokers)
		defer producer.Close()
		publisher = events.NewPublisher(producer)
		logging.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("publishing domain events to kafka")
	}

	opts := []domain.Option{domain.WithPublisher(publisher)}
	handler := api.NewHandler(
		domain.NewRunningService(st, opts...),
		domain.NewMarathonService(st, opts...),
		domain.NewApplicationService(st, st, opts...),
	)

	router := api.NewRouter(api.RouterConfig{
		Handler:        handler,
		Auth:           auth.NewMiddleware(auth.NewJWTVerifier(auth.Config{Secret: cfg.Auth.JWTSecret, Issuer: cfg.Auth.JWTIssuer})),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.Server.Address,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, router)

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("address", cfg.Server.Address).Str("driver", cfg.Store.Driver).Msg("marathon api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logging.Error().Err(err).Msg("server error")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
		os.Exit(1)
	}
	logging.Info().Msg("marathon api stopped")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store, func(), error) {
	switch cfg.Driver {
	case config.DriverMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		st := mongodb.NewStore(client.Database(cfg.MongoDatabase))
		if err := st.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return st, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := postgres.NewRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	case config.DriverMemory:
		return memory.NewStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
