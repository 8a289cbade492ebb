package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jensholdgaard/auction-house/internal/account"
	"github.com/jensholdgaard/auction-house/internal/auction"
	"github.com/jensholdgaard/auction-house/internal/cli"
	"github.com/jensholdgaard/auction-house/internal/clock"
	"github.com/jensholdgaard/auction-house/internal/config"
	"github.com/jensholdgaard/auction-house/internal/health"
	"github.com/jensholdgaard/auction-house/internal/ids"
	"github.com/jensholdgaard/auction-house/internal/store"
	"github.com/jensholdgaard/auction-house/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/auction-house/internal/store/memory"
	_ "github.com/jensholdgaard/auction-house/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Open store using the configured driver (memory or postgres).
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "store opened", slog.String("driver", cfg.Database.Driver))

	// Initialize managers. Accounts get opaque ids, auctions get the ID1000
	// style sequence shown to bidders.
	accountMgr := account.NewManager(repos.Accounts, repos.Events, ids.UUID{}, logger, tp.TracerProvider)
	auctionMgr := auction.NewManager(repos.Events, repos.Accounts, accountMgr, ids.NewSequence(), logger, tp.TracerProvider, clk)

	// Recover auctions from the event store so history survives restarts.
	if n, recoverErr := auctionMgr.RecoverAuctions(ctx); recoverErr != nil {
		logger.ErrorContext(ctx, "auction recovery failed", slog.Any("error", recoverErr))
	} else if n > 0 {
		logger.InfoContext(ctx, "recovered auctions", slog.Int("count", n))
	}

	// Setup health checks and operator stats.
	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)
	healthHandler.SetStats(health.StatsSource{
		ActiveAuctions: func(ctx context.Context) int {
			return len(auctionMgr.Active(ctx))
		},
		Accounts: func(ctx context.Context) (int, error) {
			accounts, listErr := accountMgr.List(ctx)
			return len(accounts), listErr
		},
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthHandler.LivenessHandler())
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler())
	mux.HandleFunc("/stats", healthHandler.StatsHandler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting health server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "health server error", slog.Any("error", listenErr))
		}
	}()

	healthHandler.SetReady(true)
	logger.InfoContext(ctx, "auction house is running", slog.String("version", version))

	// Run the interactive console until the user exits or a signal arrives.
	console := cli.New(accountMgr, auctionMgr, os.Stdin, os.Stdout, logger,
		cfg.Auction.OpeningBalance, cfg.Auction.DefaultDuration())

	consoleDone := make(chan error, 1)
	go func() {
		consoleDone <- console.Run(ctx)
	}()

	select {
	case err = <-consoleDone:
		if err != nil && ctx.Err() == nil {
			logger.Error("console error", slog.Any("error", err))
		}
	case <-ctx.Done():
		logger.Info("shutting down...")
	}

	healthHandler.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
