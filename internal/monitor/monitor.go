package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"enviro-station/internal/telemetry"
)

// Monitor subscribes to every topic under the station prefix and logs the
// decoded payloads. It is the operator-side counterpart of the station: it
// holds a long-lived broker session and reconnects on its own.
type Monitor struct {
	client mqtt.Client
	cfg    Config
	logger *slog.Logger

	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

type Config struct {
	BrokerHost  string
	BrokerPort  int
	ClientID    string
	TopicPrefix string
}

func New(cfg Config, logger *slog.Logger) *Monitor {
	m := &Monitor{
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.BrokerHost, cfg.BrokerPort))
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		m.setConnected(true)
		logger.Info("mqtt connected", "broker", cfg.BrokerHost, "port", cfg.BrokerPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		m.setConnected(false)
		logger.Warn("mqtt connection lost", "error", err)
	})

	m.client = mqtt.NewClient(opts)
	return m
}

// Run connects, subscribes, and blocks until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.connect(ctx); err != nil {
		return err
	}
	defer m.disconnect()

	if err := m.subscribe(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	<-ctx.Done()
	return ctx.Err()
}

func (m *Monitor) connect(ctx context.Context) error {
	token := m.client.Connect()

	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			m.client.Disconnect(0)
			return ctx.Err()
		case <-m.stopCh:
			m.client.Disconnect(0)
			return fmt.Errorf("monitor stopped")
		default:
		}
	}
}

func (m *Monitor) subscribe() error {
	topic := m.cfg.TopicPrefix + "/#"

	token := m.client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		m.handleMessage(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("subscribe timeout for topic %s", topic)
	}
	if token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", topic, token.Error())
	}

	m.logger.Info("subscribed", "topic", topic)
	return nil
}

// handleMessage routes by the topic path under the prefix.
func (m *Monitor) handleMessage(topic string, payload []byte) {
	suffix := strings.TrimPrefix(topic, m.cfg.TopicPrefix+"/")

	switch {
	case strings.HasPrefix(suffix, "sensor/"):
		m.handleSensor(topic, strings.TrimPrefix(suffix, "sensor/"), payload)
	case suffix == "heartbeat":
		m.handleHeartbeat(topic, payload)
	case suffix == "status":
		m.handleStatus(topic, payload)
	default:
		m.logger.Warn("message on unexpected topic", "topic", topic, "size", len(payload))
	}
}

func (m *Monitor) handleSensor(topic, variant string, payload []byte) {
	var data telemetry.SensorData
	if err := json.Unmarshal(payload, &data); err != nil {
		m.logger.Warn("malformed sensor payload", "topic", topic, "error", err, "payload", string(payload))
		return
	}
	if err := validateSensorData(data); err != nil {
		m.logger.Warn("implausible sensor payload", "topic", topic, "error", err)
		return
	}

	attrs := []any{
		"variant", variant,
		"reading", data.Reading,
		"temperature_c", data.Temperature,
		"pressure_hpa", data.Pressure,
	}
	if data.Humidity != nil {
		attrs = append(attrs, "humidity_pct", *data.Humidity)
	}
	m.logger.Info("sensor reading", attrs...)
}

func (m *Monitor) handleHeartbeat(topic string, payload []byte) {
	var hb telemetry.Heartbeat
	if err := json.Unmarshal(payload, &hb); err != nil {
		m.logger.Warn("malformed heartbeat payload", "topic", topic, "error", err, "payload", string(payload))
		return
	}
	m.logger.Info("heartbeat", "message", hb.Message, "sequence", hb.Sequence)
}

func (m *Monitor) handleStatus(topic string, payload []byte) {
	var st telemetry.DeviceStatus
	if err := json.Unmarshal(payload, &st); err != nil {
		m.logger.Warn("malformed status payload", "topic", topic, "error", err, "payload", string(payload))
		return
	}
	m.logger.Info("device status",
		"status", st.Status,
		"uptime_s", st.Uptime,
		"free_heap", st.FreeHeap,
		"wifi_rssi", st.WifiRSSI,
	)
}

func validateSensorData(d telemetry.SensorData) error {
	if d.Temperature < -40 || d.Temperature > 85 {
		return fmt.Errorf("temperature out of range: %f", d.Temperature)
	}
	if d.Pressure < 300 || d.Pressure > 1100 {
		return fmt.Errorf("pressure out of range: %f", d.Pressure)
	}
	if d.Humidity != nil && (*d.Humidity < 0 || *d.Humidity > 100) {
		return fmt.Errorf("humidity out of range: %f", *d.Humidity)
	}
	return nil
}

func (m *Monitor) disconnect() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	if m.client != nil {
		m.client.Disconnect(250)
	}
	m.setConnected(false)
	m.logger.Info("monitor disconnected")
}

// IsConnected reports whether the broker session is up.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	connected := m.connected
	m.mu.RUnlock()
	return connected && m.client.IsConnected()
}

func (m *Monitor) setConnected(v bool) {
	m.mu.Lock()
	m.connected = v
	m.mu.Unlock()
}
