package app

import (
	"context"
	"log/slog"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"enviro-station/internal/config"
	"enviro-station/internal/scheduler"
	"enviro-station/internal/sensor"
	"enviro-station/internal/telemetry"
	"enviro-station/internal/wifi"
)

// Run wires the station together and blocks until the context is cancelled.
// A missing or broken sensor does not stop startup: the station degrades to
// network-only operation so heartbeat and status keep flowing.
func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("initializing station",
		"mqtt_broker", cfg.MQTTBroker,
		"mqtt_port", cfg.MQTTPort,
		"mqtt_client_id", cfg.MQTTClientID,
		"topic_prefix", cfg.TopicPrefix,
		"wifi_interface", cfg.WifiInterface,
		"wifi_ssid", cfg.WifiSSID,
	)

	reader := openSensor(cfg)

	manager := wifi.NewManager(wifi.ManagerConfig{
		Radio:            wifi.NewHostRadio(cfg.WifiInterface),
		Logger:           slog.Default(),
		ReconnectBackoff: cfg.ReconnectBackoff,
		LeaseTimeout:     cfg.LeaseTimeout,
	})
	go manager.Run(ctx)

	publisher := telemetry.NewPublisher(telemetry.Config{
		BrokerHost:     cfg.MQTTBroker,
		BrokerPort:     cfg.MQTTPort,
		ClientID:       cfg.MQTTClientID,
		KeepAlive:      60,
		ConnectTimeout: cfg.ConnectTimeout,
		Logger:         slog.Default(),
	})

	sched := scheduler.New(scheduler.Config{
		Reader:              reader,
		Publisher:           publisher,
		Connectivity:        manager,
		Topics:              telemetry.Topics{Prefix: cfg.TopicPrefix},
		Logger:              slog.Default(),
		MeasurementInterval: cfg.MeasurementInterval,
		HeartbeatInterval:   cfg.HeartbeatInterval,
		StatusInterval:      cfg.StatusInterval,
	})
	sched.Run(ctx)

	slog.Info("station shutting down")
	return nil
}

// openSensor returns nil when no sensor can be brought up, which the
// scheduler treats as network-only mode. The returned interface is only
// non-nil when a driver actually initialized, so a failed init never hides
// behind a typed nil.
func openSensor(cfg config.Config) scheduler.SensorReader {
	if _, err := host.Init(); err != nil {
		slog.Warn("host init failed, running network-only", "error", err)
		return nil
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		slog.Warn("i2c bus unavailable, running network-only", "bus", cfg.I2CBus, "error", err)
		return nil
	}

	drv := sensor.New(bus, sensor.Opts{})
	if err := drv.Init(); err != nil {
		slog.Warn("sensor init failed, running network-only", "error", err)
		return nil
	}

	slog.Info("sensor initialized", "variant", drv.Variant(), "bus", bus.String())
	return drv
}
