package telemetry

import "errors"

var (
	// ErrEncoding means the topic or payload cannot be represented in a
	// valid packet.
	ErrEncoding = errors.New("telemetry: packet encoding failed")

	// ErrConnectTimeout means the broker could not be reached within the
	// connect timeout.
	ErrConnectTimeout = errors.New("telemetry: broker connect timed out")

	// ErrBrokerRejected means the broker answered the connect request
	// with something other than an acceptance.
	ErrBrokerRejected = errors.New("telemetry: broker rejected connection")

	// ErrWriteFailed means the connection dropped mid-exchange.
	ErrWriteFailed = errors.New("telemetry: write failed")
)
