package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	// Wireless link. Credentials and the interface name are startup
	// parameters; association itself is handled by the host supplicant.
	WifiInterface string
	WifiSSID      string
	WifiPassword  string

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	TopicPrefix  string

	I2CBus string

	MeasurementInterval time.Duration
	HeartbeatInterval   time.Duration
	StatusInterval      time.Duration

	ReconnectBackoff time.Duration
	LeaseTimeout     time.Duration
	ConnectTimeout   time.Duration
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	wifiInterface := strings.TrimSpace(os.Getenv("WIFI_INTERFACE"))
	if wifiInterface == "" {
		wifiInterface = "wlan0"
	}

	wifiSSID := strings.TrimSpace(os.Getenv("WIFI_SSID"))
	wifiPassword := os.Getenv("WIFI_PASSWORD")

	mqttBroker := strings.TrimSpace(os.Getenv("MQTT_BROKER"))
	if mqttBroker == "" {
		mqttBroker = "localhost"
	}

	mqttPort, err := intFromEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort < 1 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("MQTT_PORT must be in 1..65535, got %d", mqttPort)
	}

	mqttClientID := strings.TrimSpace(os.Getenv("MQTT_CLIENT_ID"))
	if mqttClientID == "" {
		mqttClientID = "enviro-station"
	}
	if len(mqttClientID) > 64 {
		return Config{}, fmt.Errorf("MQTT_CLIENT_ID too long (%d bytes, max 64)", len(mqttClientID))
	}

	topicPrefix := strings.TrimSpace(os.Getenv("TOPIC_PREFIX"))
	if topicPrefix == "" {
		topicPrefix = "enviro"
	}
	if strings.HasSuffix(topicPrefix, "/") {
		return Config{}, fmt.Errorf("TOPIC_PREFIX must not end with '/', got %q", topicPrefix)
	}

	i2cBus := strings.TrimSpace(os.Getenv("I2C_BUS")) // empty selects the default host bus

	measurementInterval, err := durationFromEnv("MEASUREMENT_INTERVAL", 30*time.Second)
	if err != nil {
		return Config{}, err
	}
	heartbeatInterval, err := durationFromEnv("HEARTBEAT_INTERVAL", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	statusInterval, err := durationFromEnv("STATUS_INTERVAL", 120*time.Second)
	if err != nil {
		return Config{}, err
	}

	reconnectBackoff, err := durationFromEnv("RECONNECT_BACKOFF", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	leaseTimeout, err := durationFromEnv("LEASE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	connectTimeout, err := durationFromEnv("CONNECT_TIMEOUT", 5*time.Second)
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:              appEnv,
		LogLevel:            level,
		WifiInterface:       wifiInterface,
		WifiSSID:            wifiSSID,
		WifiPassword:        wifiPassword,
		MQTTBroker:          mqttBroker,
		MQTTPort:            mqttPort,
		MQTTClientID:        mqttClientID,
		TopicPrefix:         topicPrefix,
		I2CBus:              i2cBus,
		MeasurementInterval: measurementInterval,
		HeartbeatInterval:   heartbeatInterval,
		StatusInterval:      statusInterval,
		ReconnectBackoff:    reconnectBackoff,
		LeaseTimeout:        leaseTimeout,
		ConnectTimeout:      connectTimeout,
	}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return v, nil
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
