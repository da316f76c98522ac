package wifi

import (
	"context"
	"net/netip"
)

// Radio abstracts the wireless hardware underneath the manager. The host
// backend talks to the kernel; tests substitute a scripted fake.
type Radio interface {
	// Associate joins the configured network. It blocks until the link is
	// associated, the context is cancelled, or the attempt fails.
	Associate(ctx context.Context) error

	// Lease blocks until an address is held on the interface or the
	// context is cancelled.
	Lease(ctx context.Context) (netip.Addr, error)

	// LinkUp reports whether the link is still associated.
	LinkUp() bool

	// SignalStrength returns the current RSSI in dBm. The second return
	// is false when the radio cannot report signal strength.
	SignalStrength() (int, bool)
}
