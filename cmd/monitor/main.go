package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"enviro-station/internal/config"
	"enviro-station/internal/logging"
	"enviro-station/internal/monitor"
)

var version = "dev"
var appName = "enviro-monitor"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	slog.Info("starting",
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
		"broker", cfg.MQTTBroker,
		"port", cfg.MQTTPort,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := monitor.New(monitor.Config{
		BrokerHost:  cfg.MQTTBroker,
		BrokerPort:  cfg.MQTTPort,
		ClientID:    cfg.MQTTClientID + "-monitor",
		TopicPrefix: cfg.TopicPrefix,
	}, logger)

	if err := m.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}

	slog.Info("shutting down")
}
