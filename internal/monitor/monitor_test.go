package monitor

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"enviro-station/internal/telemetry"
)

func humidity(v float64) *float64 { return &v }

func TestValidateSensorData(t *testing.T) {
	tests := []struct {
		name    string
		data    telemetry.SensorData
		wantErr bool
	}{
		{
			name: "nominal",
			data: telemetry.SensorData{Temperature: 23.5, Pressure: 1013.8, Humidity: humidity(68.2)},
		},
		{
			name: "no humidity",
			data: telemetry.SensorData{Temperature: 23.5, Pressure: 1013.8},
		},
		{
			name:    "temperature too low",
			data:    telemetry.SensorData{Temperature: -41, Pressure: 1013.8},
			wantErr: true,
		},
		{
			name:    "pressure too high",
			data:    telemetry.SensorData{Temperature: 23.5, Pressure: 1200},
			wantErr: true,
		},
		{
			name:    "humidity above 100",
			data:    telemetry.SensorData{Temperature: 23.5, Pressure: 1013.8, Humidity: humidity(101)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSensorData(tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateSensorData() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newCapturingMonitor() (*Monitor, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := &Monitor{
		cfg:    Config{TopicPrefix: "enviro"},
		logger: logger,
	}
	return m, &buf
}

func TestHandleMessage_Routing(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    string
	}{
		{
			name:    "sensor reading",
			topic:   "enviro/sensor/bme280",
			payload: `{"temperature":23.5,"humidity":68.2,"pressure":1013.8,"reading":42}`,
			want:    "sensor reading",
		},
		{
			name:    "heartbeat",
			topic:   "enviro/heartbeat",
			payload: `{"message":"alive","sequence":123}`,
			want:    "heartbeat",
		},
		{
			name:    "status",
			topic:   "enviro/status",
			payload: `{"status":"online","uptime":3600,"free_heap":45000,"wifi_rssi":-42}`,
			want:    "device status",
		},
		{
			name:    "unknown topic",
			topic:   "enviro/debug",
			payload: `{}`,
			want:    "unexpected topic",
		},
		{
			name:    "malformed json",
			topic:   "enviro/heartbeat",
			payload: `{"message":`,
			want:    "malformed heartbeat payload",
		},
		{
			name:    "implausible reading",
			topic:   "enviro/sensor/bme280",
			payload: `{"temperature":900,"pressure":1013.8,"reading":1}`,
			want:    "implausible sensor payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, buf := newCapturingMonitor()
			m.handleMessage(tt.topic, []byte(tt.payload))
			if got := buf.String(); !strings.Contains(got, tt.want) {
				t.Errorf("log output = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
