package wifi

import "errors"

var (
	// ErrAssociationFailed means the radio could not join the configured
	// network.
	ErrAssociationFailed = errors.New("wifi: association failed")

	// ErrLeaseTimeout means association succeeded but no address was
	// obtained within the lease timeout.
	ErrLeaseTimeout = errors.New("wifi: address lease timed out")

	// ErrLinkLost means an established connection dropped.
	ErrLinkLost = errors.New("wifi: link lost")
)
