// Command kardex wires the stock ledger services to PostgreSQL and keeps
// the process alive until shutdown. The service layer is the API surface;
// callers embed it or drive it over their own transport.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"kardex/internal/domain/analytics"
	"kardex/internal/domain/ledger"
	"kardex/internal/infrastructure/config"
	"kardex/internal/infrastructure/storage/postgres"
	"kardex/internal/infrastructure/storage/postgres/ledger_repo"
	"kardex/internal/infrastructure/storage/postgres/report_repo"
	"kardex/pkg/logger"
)

func main() {
	demo := flag.Bool("demo", false, "run a movement/valuation round trip and exit")
	flag.Parse()

	if err := run(*demo); err != nil {
		logger.Error(context.Background(), "fatal", "error", err)
		os.Exit(1)
	}
}

func run(demo bool) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		return err
	}
	defer log.Sync()
	ctx = logger.WithLogger(ctx, log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)
	ledgerSvc := ledger.NewService(ledger_repo.NewLedgerRepo(txManager), txManager)
	analyticsSvc := analytics.NewService(report_repo.NewReportRepo(txManager))

	logger.Info(ctx, "kardex started", "env", cfg.AppEnv)

	if demo {
		return runDemo(ctx, ledgerSvc, analyticsSvc)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info(ctx, "kardex stopped")
	return nil
}
