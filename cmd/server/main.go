// Command server deploys the launchpad, indexes its events into the
// configured stores and serves them over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"token-launchpad/internal/api"
	"token-launchpad/internal/indexer"
	"token-launchpad/internal/logger"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/platform"
	"token-launchpad/internal/simulation"
	"token-launchpad/internal/storage"
	chstore "token-launchpad/internal/storage/clickhouse"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/storage/migrations"
	pgstore "token-launchpad/internal/storage/postgres"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	listenAddr := flag.String("listen", ":8080", "HTTP listen address (or set LISTEN_ADDR env var)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (or set POSTGRES_DSN env var)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for the event mirror (or set CLICKHOUSE_DSN env var)")
	useMemory := flag.Bool("use-memory", false, "use in-memory storage instead of PostgreSQL")
	refreshInterval := flag.Duration("refresh-interval", time.Minute, "sale snapshot refresh interval")
	demoLaunches := flag.Int("demo-launches", 1, "scripted launches that reach their hard cap at startup")
	demoFailed := flag.Int("demo-failed", 1, "scripted launches that miss their soft cap at startup")
	corsOrigins := flag.StringSlice("cors-origins", nil, "allowed CORS origins (or set CORS_ORIGINS env var, comma-separated)")
	verbose := flag.BoolP("verbose", "v", false, "enable debug logging")
	flag.Parse()

	if env := os.Getenv("LISTEN_ADDR"); env != "" && !flag.CommandLine.Changed("listen") {
		*listenAddr = env
	}
	if env := os.Getenv("POSTGRES_DSN"); env != "" && *postgresDSN == "" {
		*postgresDSN = env
	}
	if env := os.Getenv("CLICKHOUSE_DSN"); env != "" && *clickhouseDSN == "" {
		*clickhouseDSN = env
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" && len(*corsOrigins) == 0 {
		*corsOrigins = strings.Split(env, ",")
	}
	if env := os.Getenv("LOG_VERBOSE"); env != "" && !flag.CommandLine.Changed("verbose") {
		v, err := strconv.ParseBool(env)
		if err != nil {
			return fmt.Errorf("LOG_VERBOSE: %w", err)
		}
		*verbose = v
	}
	if !*useMemory && *postgresDSN == "" {
		return errors.New("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	log := logger.New(*verbose).With("instance", uuid.New().String())
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, log, *useMemory, *postgresDSN, *clickhouseDSN)
	if err != nil {
		return err
	}
	defer st.close()

	// Demo launches move through their phases on a simulated clock; the
	// refresh loop and request handling use wall time.
	clock := clockwork.NewFakeClockAt(time.Now().Truncate(time.Second))
	metrics := observability.NewMetrics("token_launchpad")

	d, err := platform.New(ctx, platform.Options{Clock: clock, Metrics: metrics, Logger: log})
	if err != nil {
		return fmt.Errorf("deploy platform: %w", err)
	}
	rec, err := indexer.NewRecorder(indexer.Options{
		Events:    st.events,
		Snapshots: st.snapshots,
		Sales:     d.Generator,
		Clock:     clockwork.NewRealClock(),
		Metrics:   metrics,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("create recorder: %w", err)
	}
	d.Ledger.Subscribe(rec)
	log.Info("platform deployed", "admin", d.Admin, "generator", d.Generator.Address(), "vault", d.Vault.Address())

	if err := seedDemo(ctx, log, d, clock, *demoLaunches, *demoFailed); err != nil {
		return err
	}
	if err := rec.Refresh(ctx); err != nil {
		log.Warn("initial refresh failed", "error", err)
	}

	router, err := api.NewRouter(api.Options{
		Events:         st.events[0],
		Snapshots:      st.snapshots,
		Vault:          d.Vault,
		Metrics:        metrics,
		Logger:         log,
		AllowedOrigins: *corsOrigins,
	})
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	srv := &http.Server{
		Addr:              *listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec.Run(gctx, *refreshInterval)
		return nil
	})
	g.Go(func() error {
		log.Info("http server listening", "addr", *listenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// stores holds the event stores in write order; the first one serves reads.
type stores struct {
	events    []storage.EventStore
	snapshots storage.SaleSnapshotStore
	closers   []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, log *slog.Logger, useMemory bool, postgresDSN, clickhouseDSN string) (*stores, error) {
	if useMemory {
		log.Info("using in-memory storage")
		return &stores{
			events:    []storage.EventStore{memory.NewEventStore()},
			snapshots: memory.NewSaleSnapshotStore(),
		}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrations: %w", err)
	}
	st := &stores{
		events:    []storage.EventStore{pgstore.NewEventStore(pool)},
		snapshots: pgstore.NewSaleSnapshotStore(pool),
		closers:   []func(){pool.Close},
	}
	log.Info("postgres ready")

	if clickhouseDSN == "" {
		return st, nil
	}
	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	st.events = append(st.events, chstore.NewEventStore(conn))
	st.closers = append(st.closers, func() { _ = conn.Close() })
	log.Info("clickhouse event mirror ready")
	return st, nil
}

// seedDemo runs scripted launches so the API has data to serve.
func seedDemo(ctx context.Context, log *slog.Logger, d *platform.Deployment, clock *clockwork.FakeClock, succeeded, failed int) error {
	runner := simulation.NewRunner(d, clock, log)
	for i := 0; i < succeeded+failed; i++ {
		sc := simulation.DefaultScenario()
		sc.KeepLock = true
		if i >= succeeded {
			sc.Fill = "3"
		}
		res, err := runner.Run(ctx, sc)
		if err != nil {
			return fmt.Errorf("demo launch %d: %w", i+1, err)
		}
		log.Info("demo launch settled", "launch", i+1, "sale", res.Sale, "phase", res.Phase)
	}
	return nil
}
