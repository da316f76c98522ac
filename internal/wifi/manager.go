package wifi

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"
)

const defaultLinkPollInterval = time.Second

// Manager runs the connectivity lifecycle for one radio: associate, obtain
// an address, watch the link, and on any failure back off and start over.
// State writes happen only on the Run goroutine; queries are safe from any
// goroutine.
type Manager struct {
	radio   Radio
	logger  *slog.Logger
	backoff time.Duration
	lease   time.Duration
	poll    time.Duration

	mu    sync.RWMutex
	state State
}

// ManagerConfig configures a Manager. Radio is required; zero durations
// select defaults.
type ManagerConfig struct {
	Radio            Radio
	Logger           *slog.Logger
	ReconnectBackoff time.Duration
	LeaseTimeout     time.Duration
	LinkPollInterval time.Duration
}

func NewManager(cfg ManagerConfig) *Manager {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	backoff := cfg.ReconnectBackoff
	if backoff <= 0 {
		backoff = 5 * time.Second
	}
	lease := cfg.LeaseTimeout
	if lease <= 0 {
		lease = 10 * time.Second
	}
	poll := cfg.LinkPollInterval
	if poll <= 0 {
		poll = defaultLinkPollInterval
	}
	return &Manager{
		radio:   cfg.Radio,
		logger:  logger,
		backoff: backoff,
		lease:   lease,
		poll:    poll,
		state:   State{Kind: StateIdle},
	}
}

// State returns a snapshot of the current connectivity state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected reports whether an address is currently held.
func (m *Manager) IsConnected() bool {
	return m.State().Kind == StateConnected
}

// Address returns the held address. The second return is false in every
// state except connected.
func (m *Manager) Address() (netip.Addr, bool) {
	s := m.State()
	return s.Address, s.Kind == StateConnected
}

// SignalStrength reports the radio RSSI in dBm when available.
func (m *Manager) SignalStrength() (int, bool) {
	return m.radio.SignalStrength()
}

// setState replaces the whole snapshot so no reader can observe a stale
// address paired with a non-connected kind.
func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run drives the lifecycle until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		if err := m.connect(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setState(State{Kind: StateDisconnected, Reason: err})
			m.logger.Warn("wifi connection attempt failed", "error", err, "retry_in", m.backoff)
		} else {
			m.watchLink(ctx)
			if ctx.Err() != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.backoff):
		}
	}
}

func (m *Manager) connect(ctx context.Context) error {
	m.setState(State{Kind: StateConnecting})
	m.logger.Info("wifi connecting")

	if err := m.radio.Associate(ctx); err != nil {
		return err
	}

	leaseCtx, cancel := context.WithTimeout(ctx, m.lease)
	defer cancel()
	addr, err := m.radio.Lease(leaseCtx)
	if err != nil {
		return err
	}

	m.setState(State{Kind: StateConnected, Address: addr})
	m.logger.Info("wifi connected", "address", addr.String())
	return nil
}

// watchLink polls the link until it drops or the context is cancelled.
func (m *Manager) watchLink(ctx context.Context) {
	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.radio.LinkUp() {
				continue
			}
			m.setState(State{Kind: StateDisconnected, Reason: ErrLinkLost})
			m.logger.Warn("wifi link lost", "retry_in", m.backoff)
			return
		}
	}
}
