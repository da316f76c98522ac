package scheduler

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"enviro-station/internal/sensor"
	"enviro-station/internal/telemetry"
)

// SensorReader is the slice of the sensor driver the scheduler needs.
type SensorReader interface {
	Read() (sensor.Measurement, error)
	Variant() sensor.Variant
}

// Publisher delivers one payload to one topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Connectivity answers whether publishing is worth attempting right now.
type Connectivity interface {
	IsConnected() bool
	SignalStrength() (int, bool)
}

// Config configures a Scheduler. Reader may be nil, which puts the scheduler
// in network-only mode: heartbeat and status keep flowing while the sensor
// cadence idles.
type Config struct {
	Reader       SensorReader
	Publisher    Publisher
	Connectivity Connectivity
	Topics       telemetry.Topics
	Logger       *slog.Logger

	MeasurementInterval time.Duration
	HeartbeatInterval   time.Duration
	StatusInterval      time.Duration
}

// Counters are the totals of successful publishes per message class, plus
// the total of failed attempts across all classes.
type Counters struct {
	Readings      uint64
	Heartbeats    uint64
	StatusReports uint64
	Failures      uint64
}

// Scheduler runs the three publish cadences on independent tickers so a
// stall in one cannot delay the others. Each tick reads, encodes, and
// publishes; failures are logged and the cadence simply waits for its next
// tick.
type Scheduler struct {
	cfg     Config
	logger  *slog.Logger
	started time.Time

	mu           sync.Mutex
	readingSeq   uint64
	heartbeatSeq uint64
	last         sensor.Measurement
	haveReading  bool
	sensorOK     bool
	counters     Counters
}

func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MeasurementInterval <= 0 {
		cfg.MeasurementInterval = 30 * time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 60 * time.Second
	}
	if cfg.StatusInterval <= 0 {
		cfg.StatusInterval = 120 * time.Second
	}
	// optimistic until a read fails; network-only mode stays online
	return &Scheduler{
		cfg:      cfg,
		logger:   cfg.Logger,
		sensorOK: true,
	}
}

// Run blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.started = time.Now()
	if s.cfg.Reader == nil {
		s.logger.Warn("no sensor attached, running network-only")
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.runCadence(ctx, s.cfg.MeasurementInterval, s.measurementTick)
	}()
	go func() {
		defer wg.Done()
		s.runCadence(ctx, s.cfg.HeartbeatInterval, s.heartbeatTick)
	}()
	go func() {
		defer wg.Done()
		s.runCadence(ctx, s.cfg.StatusInterval, s.statusTick)
	}()
	wg.Wait()
}

func (s *Scheduler) runCadence(ctx context.Context, interval time.Duration, tick func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick(ctx)
		}
	}
}

// measurementTick reads the sensor regardless of connectivity so the local
// reading stays fresh, then publishes only when connected. The sequence
// number counts accepted readings, not attempts.
func (s *Scheduler) measurementTick(ctx context.Context) {
	if s.cfg.Reader == nil {
		return
	}

	m, err := s.cfg.Reader.Read()
	if err != nil {
		s.mu.Lock()
		s.sensorOK = false
		s.mu.Unlock()
		s.logger.Error("sensor read failed", "error", err)
		return
	}

	s.mu.Lock()
	s.readingSeq++
	m.Sequence = s.readingSeq
	s.last = m
	s.haveReading = true
	s.sensorOK = true
	s.mu.Unlock()

	if !s.cfg.Connectivity.IsConnected() {
		s.logger.Debug("reading held, not connected", "sequence", m.Sequence)
		return
	}

	data := telemetry.SensorData{
		Temperature: m.Temperature,
		Humidity:    m.Humidity,
		Pressure:    m.Pressure,
		Reading:     m.Sequence,
	}
	topic := s.cfg.Topics.Sensor(string(s.cfg.Reader.Variant()))
	if s.publish(ctx, topic, data) {
		s.mu.Lock()
		s.counters.Readings++
		s.mu.Unlock()
	}
}

func (s *Scheduler) heartbeatTick(ctx context.Context) {
	if !s.cfg.Connectivity.IsConnected() {
		return
	}

	s.mu.Lock()
	s.heartbeatSeq++
	seq := s.heartbeatSeq
	s.mu.Unlock()

	hb := telemetry.Heartbeat{Message: "alive", Sequence: seq}
	if s.publish(ctx, s.cfg.Topics.Heartbeat(), hb) {
		s.mu.Lock()
		s.counters.Heartbeats++
		s.mu.Unlock()
	}
}

func (s *Scheduler) statusTick(ctx context.Context) {
	if !s.cfg.Connectivity.IsConnected() {
		return
	}

	s.mu.Lock()
	healthy := s.sensorOK
	s.mu.Unlock()

	status := "online"
	if !healthy {
		status = "degraded"
	}
	rssi, _ := s.cfg.Connectivity.SignalStrength()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	report := telemetry.DeviceStatus{
		Status:   status,
		Uptime:   int64(time.Since(s.started).Seconds()),
		FreeHeap: ms.HeapSys - ms.HeapAlloc,
		WifiRSSI: rssi,
	}
	if s.publish(ctx, s.cfg.Topics.Status(), report) {
		s.mu.Lock()
		s.counters.StatusReports++
		s.mu.Unlock()
	}
}

func (s *Scheduler) publish(ctx context.Context, topic string, payload any) bool {
	body, err := json.Marshal(payload)
	if err != nil {
		s.recordFailure()
		s.logger.Error("payload encoding failed", "topic", topic, "error", err)
		return false
	}
	if err := s.cfg.Publisher.Publish(ctx, topic, body); err != nil {
		s.recordFailure()
		s.logger.Warn("publish failed", "topic", topic, "error", err)
		return false
	}
	return true
}

func (s *Scheduler) recordFailure() {
	s.mu.Lock()
	s.counters.Failures++
	s.mu.Unlock()
}

// LastMeasurement returns the most recent accepted reading.
func (s *Scheduler) LastMeasurement() (sensor.Measurement, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.haveReading
}

// Counters returns the publish totals so far.
func (s *Scheduler) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}
