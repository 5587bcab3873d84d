package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/b8kings0ga/ctrader/internal/bot"
	"github.com/b8kings0ga/ctrader/internal/config"
	"github.com/b8kings0ga/ctrader/internal/metrics"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "./config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := bot.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Serve(ctx, cfg.Metrics.ListenAddr, nil, logger)

	logger.Info("starting",
		zap.String("strategy", cfg.Strategy.ID),
		zap.Strings("symbols", cfg.Symbols),
		zap.Bool("dry_run", cfg.DryRun),
	)

	if err := bot.New(cfg, logger).Run(ctx); err != nil {
		logger.Fatal("bot exited with error", zap.Error(err))
	}
}
