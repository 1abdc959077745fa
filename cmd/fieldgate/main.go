// cmd/fieldgate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/fieldgate/fieldgate/internal/config"
	"github.com/fieldgate/fieldgate/internal/gateway"
	"github.com/fieldgate/fieldgate/internal/metric"
)

func main() {
	var (
		cfgPath       string
		logLevel      string
		logFile       string
		metricsListen string
	)

	pflag.StringVarP(&cfgPath, "config", "c", "config.yaml", "path to the config file")
	pflag.StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pflag.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	pflag.StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address (overrides config)")
	pflag.Parse()

	logger, closeLog, err := setupLogger(logLevel, logFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fieldgate: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfgPath, metricsListen, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfgPath, metricsListen string, logger *slog.Logger) error {
	logger.Info("reading configuration", "path", cfgPath)

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	config.Normalize(cfg)

	metrics := metric.New()
	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	if metricsListen == "" {
		metricsListen = cfg.Gateway.MetricsListen
	}
	if metricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metric.Handler(registry))
		go func() {
			logger.Info("serving metrics", "addr", metricsListen)
			if err := http.ListenAndServe(metricsListen, mux); err != nil {
				logger.Error("metrics listener stopped", "error", err)
			}
		}()
	}

	g, err := gateway.Build(cfg, logger, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return g.Run(ctx)
}

func setupLogger(level, file string) (*slog.Logger, func(), error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q", level)
	}

	out := os.Stderr
	closeLog := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closeLog = func() { _ = f.Close() }
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: lvl})), closeLog, nil
}
