// Command campusledger is the operational entrypoint: schema migrations,
// chart-of-accounts seeding, on-demand reconciliation runs, and report
// printing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/campusledger/campusledger/internal/app"
	"github.com/campusledger/campusledger/internal/ledger/accounts"
	"github.com/campusledger/campusledger/internal/platform/cache"
	"github.com/campusledger/campusledger/internal/platform/db"
	"github.com/campusledger/campusledger/internal/recon"
	"github.com/campusledger/campusledger/internal/reports"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd := "recon"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "migrate":
		if err := db.Migrate(cfg.PGDSN, cfg.MigrationsDir); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	case "seed":
		runSeed(ctx, cfg, logger)
	case "recon":
		runRecon(ctx, cfg, logger)
	case "trial-balance":
		runTrialBalance(ctx, cfg, logger)
	default:
		fmt.Fprintf(os.Stderr, "usage: campusledger [migrate|seed|recon|trial-balance]\n")
		os.Exit(2)
	}
}

func runSeed(ctx context.Context, cfg *app.Config, logger *slog.Logger) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	catalog := accounts.NewCatalog(accounts.NewRepository(pool))
	if err := catalog.Seed(ctx, accounts.DefaultChart()); err != nil {
		logger.Error("seed chart of accounts", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("chart of accounts seeded", slog.Int("accounts", len(accounts.DefaultChart())))
}

func runRecon(ctx context.Context, cfg *app.Config, logger *slog.Logger) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	engine := recon.NewEngine(recon.NewRepository(pool), logger)
	report, err := engine.Run(ctx, 0)
	if err != nil {
		logger.Error("reconciliation run", slog.Any("error", err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("encode report", slog.Any("error", err))
		os.Exit(1)
	}
	if report.Overall == recon.StatusFail {
		os.Exit(1)
	}
}

func runTrialBalance(ctx context.Context, cfg *app.Config, logger *slog.Logger) {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// The report cache is best effort; run uncached when redis is down.
	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, reports run uncached", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	svc := reports.NewService(reports.NewRepository(pool), redisClient, cfg.ReportCacheTTL, logger)
	now := time.Now().UTC()
	start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	tb, err := svc.TrialBalance(ctx, start, now)
	if err != nil {
		logger.Error("trial balance", slog.Any("error", err))
		os.Exit(1)
	}

	view := reports.NewTrialBalanceView(tb)
	for _, row := range view.Rows {
		fmt.Printf("%-6s %-32s %16s %16s\n", row.AccountCode, row.AccountName, row.Debits, row.Credits)
	}
	fmt.Printf("%-39s %16s %16s\n", "TOTAL", view.TotalDebits, view.TotalCredits)
	if !view.IsBalanced {
		fmt.Fprintln(os.Stderr, "warning: trial balance does not balance")
		os.Exit(1)
	}
}
