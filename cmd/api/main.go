package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/workouts/internal/api"
	"example.com/workouts/internal/auth"
	"example.com/workouts/internal/config"
	"example.com/workouts/internal/domain"
	"example.com/workouts/internal/outbox"
	"example.com/workouts/internal/persistence"
	"example.com/workouts/internal/persistence/memory"
	"example.com/workouts/internal/persistence/postgres"
	"example.com/workouts/internal/persistence/sqlite"
	httptransport "example.com/workouts/internal/transport/http"
)

func main() {
	if loaded, err := config.LoadDotEnv(); err != nil {
		log.Fatalf("failed to read env file: %v", err)
	} else if len(loaded) > 0 {
		log.Printf("loaded env from %v", loaded)
	}
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slots, closeSlots, err := buildSlotStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s storage: %v", cfg.StorageBackend, err)
	}
	defer closeSlots.Close()

	adapter := persistence.NewAdapter(persistence.WithTimeout(slots, cfg.StorageTimeout), cfg.StorageSlot)

	opts := []domain.Option{}
	if len(cfg.KafkaBrokers) > 0 {
		writer := outbox.NewWriter(cfg.KafkaBrokers, cfg.EventsTopic)
		defer writer.Close()
		opts = append(opts, domain.WithPublisher(outbox.NewKafkaPublisher(writer)))
		log.Printf("change feed enabled -> %s on %v", cfg.EventsTopic, cfg.KafkaBrokers)
	}

	service := domain.NewService(adapter, opts...)
	if err := service.Open(ctx); err != nil {
		log.Printf("workouts not restored, continuing with an empty list (saves wait until storage answers): %v", err)
	}
	log.Printf("loaded %d workouts from slot %q", len(service.List(ctx)), adapter.Slot())

	handler := api.NewHandler(service)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	// Simple CORS middleware for the browser front end
	cors := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "http://localhost:5173")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Expose-Headers", api.StorageWarningHeader)
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	// Basic request logger
	logger := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("%s %s", r.Method, r.URL.Path)
			next.ServeHTTP(w, r)
		})
	}

	authCfg := auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer}
	if !authCfg.Enabled() {
		log.Printf("JWT_SECRET not set, bearer tokens are not checked")
	}
	authMiddleware := auth.NewMiddleware(authCfg)

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, cors(logger(authMiddleware.Wrap(mux))))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("workouts service listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func buildSlotStore(ctx context.Context, cfg config.Config) (persistence.SlotStore, io.Closer, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		log.Printf("using in-memory storage (quota=%d bytes)", cfg.StorageQuotaBytes)
		return memory.NewSlotStore(memory.WithQuota(cfg.StorageQuotaBytes)), closerFunc(func() error { return nil }), nil
	case config.BackendSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLiteDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		log.Printf("using sqlite storage at %s", cfg.SQLiteDSN)
		return store, store, nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		store := postgres.NewSlotStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Printf("using postgres storage")
		return store, closerFunc(func() error { pool.Close(); return nil }), nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
