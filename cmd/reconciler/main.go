package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsqlx"

	"github.com/Bandi86/2025-sub012/internal/config"
	"github.com/Bandi86/2025-sub012/internal/domain/payload"
	"github.com/Bandi86/2025-sub012/internal/infrastructure/repository/postgres"
	"github.com/Bandi86/2025-sub012/internal/observability"
	"github.com/Bandi86/2025-sub012/internal/platform/logging"
	"github.com/Bandi86/2025-sub012/internal/usecase"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Args[1], os.Args[2:]); err != nil {
		logger.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *logging.Logger, command string, args []string) error {
	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		return fmt.Errorf("init uptrace: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownUptrace(shutdownCtx); err != nil {
			logger.Warn("uptrace shutdown failed", "error", err)
		}
	}()

	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		return fmt.Errorf("init pyroscope: %w", err)
	}
	defer func() {
		if err := stopProfiler(); err != nil {
			logger.Warn("pyroscope stop failed", "error", err)
		}
	}()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	app := newApp(cfg, db, logger)

	switch strings.ToLower(strings.TrimSpace(command)) {
	case "ingest":
		if len(args) < 1 {
			return fmt.Errorf("ingest requires a payload file argument")
		}
		return app.ingest(ctx, args[0])
	case "reconcile":
		return app.reconcile(ctx)
	case "scan":
		return app.scan(ctx)
	case "run":
		if len(args) < 1 {
			return fmt.Errorf("run requires a payload file argument")
		}
		// Full cycle: ingest, collapse duplicates, then report anomalies.
		if err := app.ingest(ctx, args[0]); err != nil {
			return err
		}
		if err := app.reconcile(ctx); err != nil {
			return err
		}
		return app.scan(ctx)
	case "daemon":
		return app.daemon(ctx)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func openDatabase(ctx context.Context, cfg config.Config) (*sqlx.DB, error) {
	if strings.TrimSpace(cfg.DBURL) == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	db, err := otelsqlx.Open("postgres", cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

type app struct {
	cfg        config.Config
	logger     *logging.Logger
	ingestor   *usecase.IngestService
	reconciler *usecase.ReconcileService
	scanner    *usecase.ScanService
}

func newApp(cfg config.Config, db *sqlx.DB, logger *logging.Logger) *app {
	teamRepo := postgres.NewTeamRepository(db)
	competitionRepo := postgres.NewCompetitionRepository(db)
	matchRepo := postgres.NewMatchRepository(db)

	return &app{
		cfg:    cfg,
		logger: logger,
		ingestor: usecase.NewIngestService(
			teamRepo,
			competitionRepo,
			matchRepo,
			logger,
			cfg.IngestMaxWorkers,
		),
		reconciler: usecase.NewReconcileService(matchRepo, logger),
		scanner: usecase.NewScanService(
			teamRepo,
			competitionRepo,
			matchRepo,
			usecase.ScanConfig{
				LeakedTokens:          cfg.LeakedTokens(),
				MaxNameLength:         cfg.MaxNameLength,
				FarFutureHorizon:      cfg.FarFutureHorizon(),
				MinMarketCount:        cfg.MinMarketCount,
				PrimaryMarketName:     cfg.PrimaryMarketName,
				PrimaryMarketOddCount: cfg.PrimaryMarketOddCount,
			},
			logger,
		),
	}
}

func (a *app) ingest(ctx context.Context, path string) error {
	payloads, err := readPayloadFile(path)
	if err != nil {
		return err
	}

	report, err := a.ingestor.IngestBatch(ctx, payloads)
	if err != nil {
		return fmt.Errorf("ingest batch: %w", err)
	}

	return printJSON(report)
}

func (a *app) reconcile(ctx context.Context) error {
	summary, err := a.reconciler.Run(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	return printJSON(summary)
}

func (a *app) scan(ctx context.Context) error {
	report, err := a.scanner.Run(ctx)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	return printJSON(report)
}

// daemon runs reconcile and scan on a fixed interval until the context is
// cancelled. Ingestion stays on demand; the store is fed by the scraping
// side's own schedule.
func (a *app) daemon(ctx context.Context) error {
	a.logger.Info("daemon started", "interval", a.cfg.ReconcileInterval.String())

	ticker := time.NewTicker(a.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		if err := a.reconcile(ctx); err != nil {
			a.logger.ErrorContext(ctx, "reconcile cycle failed", "error", err)
		}
		if err := a.scan(ctx); err != nil {
			a.logger.ErrorContext(ctx, "scan cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			a.logger.Info("daemon stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func readPayloadFile(path string) ([]payload.RawMatchPayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, crerr.Wrap(err, "read payload file")
	}

	var payloads []payload.RawMatchPayload
	if err := sonic.Unmarshal(data, &payloads); err != nil {
		return nil, crerr.Wrapf(err, "decode payload file %q", filepath.Base(path))
	}

	return payloads, nil
}

func printJSON(v any) error {
	out, err := sonic.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func printUsage() {
	name := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "usage: %s <ingest|reconcile|scan|run|daemon> [args]\n", name)
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s ingest payloads.json\n", name)
	fmt.Fprintf(os.Stderr, "  %s reconcile\n", name)
	fmt.Fprintf(os.Stderr, "  %s scan\n", name)
	fmt.Fprintf(os.Stderr, "  %s run payloads.json\n", name)
	fmt.Fprintf(os.Stderr, "  %s daemon\n", name)
}
