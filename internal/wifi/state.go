package wifi

import (
	"fmt"
	"net/netip"
)

// StateKind enumerates the connectivity lifecycle.
type StateKind int

const (
	// StateIdle is the state before the manager starts.
	StateIdle StateKind = iota
	// StateConnecting covers association and address acquisition.
	StateConnecting
	// StateConnected means the link is up and an address is held.
	StateConnected
	// StateDisconnected means an established link was lost or an attempt
	// failed; the manager retries from here after the backoff.
	StateDisconnected
)

func (k StateKind) String() string {
	switch k {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// State is one snapshot of the connectivity lifecycle. Address is set only
// when Kind is StateConnected; Reason only when Kind is StateDisconnected.
type State struct {
	Kind    StateKind
	Address netip.Addr
	Reason  error
}
