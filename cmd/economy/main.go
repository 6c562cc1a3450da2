package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/congo-pay/economy/internal/account"
	"github.com/congo-pay/economy/internal/banknote"
	"github.com/congo-pay/economy/internal/commands"
	"github.com/congo-pay/economy/internal/config"
	"github.com/congo-pay/economy/internal/console"
	"github.com/congo-pay/economy/internal/identity"
	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/logging"
	"github.com/congo-pay/economy/internal/metrics"
	"github.com/congo-pay/economy/internal/notification"
	"github.com/congo-pay/economy/internal/routes"
	"github.com/congo-pay/economy/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("open stores", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer deps.close(logger)

	collector := metrics.New()
	accountsBackend := collector.InstrumentBackend("accounts", deps.accounts)
	notesBackend := collector.InstrumentBackend("banknotes", deps.banknotes)

	accounts, err := account.Open(ctx, accountsBackend, logger)
	if err != nil {
		logger.Error("load accounts", "error", err)
		os.Exit(1)
	}
	notes, err := banknote.Open(ctx, notesBackend, logger)
	if err != nil {
		logger.Error("load banknotes", "error", err)
		os.Exit(1)
	}
	collector.TrackGauge("account", "known", "Accounts with a balance record.", func() float64 { return float64(accounts.Len()) })
	collector.TrackGauge("banknote", "live", "Issued banknotes not yet redeemed.", func() float64 { return float64(notes.Live()) })

	economy := ledger.New(accounts, notes, ledger.WithLogger(logger), ledger.WithRecorder(collector))

	notifier := notification.Fanout{notification.NewLoggerNotifier(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafka := notification.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafka.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
		notifier = append(notifier, kafka)
	}

	svc := commands.NewService(
		economy,
		identity.NewService(deps.players),
		notifier,
		commands.WithLogger(logger),
		commands.WithStartingBalance(cfg.StartingBalance),
	)

	logger.Info("economy ready",
		"app", cfg.AppName,
		"env", cfg.AppEnv,
		"backend", cfg.StoreBackend,
		"accounts", accounts.Len(),
		"banknotes", notes.Live(),
	)

	errCh := make(chan error, 2)

	var ops *server.Server
	if cfg.OpsEnabled() {
		ops, err = server.New(routes.Deps{
			Cfg:      cfg,
			Checks:   map[string]routes.Pinger{"accounts": accounts, "banknotes": notes},
			Registry: collector.Registry(),
		}, logger)
		if err != nil {
			logger.Error("build ops server", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := ops.Listen(); err != nil {
				errCh <- fmt.Errorf("ops server: %w", err)
			}
		}()
		logger.Info("ops server listening", "addr", cfg.OpsAddr)
	}

	go func() {
		errCh <- console.New(svc, os.Stdout, logger).Run(ctx, os.Stdin)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("stopped with error", "error", err)
			exitCode = 1
		} else {
			logger.Info("console closed")
		}
	}

	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
			exitCode = 1
		}
	}

	if exitCode != 0 {
		deps.close(logger)
		os.Exit(exitCode)
	}
	logger.Info("economy exited cleanly")
}
