package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/brojonat/solwallet/service/artifact"
	"github.com/brojonat/solwallet/service/metrics"
	"github.com/brojonat/solwallet/service/nats"
	"github.com/brojonat/solwallet/service/provision"
	"github.com/brojonat/solwallet/service/solana"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"
)

func provisionAction(c *cli.Context) error {
	cfg, err := configFromCLI(c)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.LogLevel)
	ctx := c.Context

	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics(registry)

	confirmer := &artifact.PromptConfirmer{In: c.App.Reader, Out: c.App.Writer}
	writer := artifact.NewWriter(cfg.OutputDir, confirmer, m, logger)

	// Only the funding path talks to Solana.
	var funder provision.Funder
	if cfg.Funding() {
		funder = solana.NewClient(solana.NewRPCClient(cfg.RPCURL), cfg.Network(), m, logger)
		logger.Debug("initialized solana RPC client", "network", cfg.Network())
	}

	var publisher nats.Publisher
	if cfg.NATSURL != "" {
		pub, err := nats.NewPublisher(ctx, cfg.NATSURL, m, logger)
		if err != nil {
			return &provision.Error{Kind: provision.KindNetwork, Op: "connecting to NATS", Err: err}
		}
		defer pub.Close()
		publisher = pub
	}

	p := provision.New(writer, funder, publisher, c.App.Writer, logger)
	result, runErr := p.Run(ctx, cfg)
	if runErr != nil {
		logger.Error("provisioning failed",
			"kind", provision.KindOf(runErr).String(),
			"error", runErr,
		)
	} else {
		logger.Info("provisioning complete", "address", result.Address)
	}

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, registry); err != nil {
			logger.Warn("failed to push metrics", "error", err)
		}
	}

	return runErr
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
