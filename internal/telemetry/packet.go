package telemetry

import (
	"encoding/binary"
	"fmt"
)

// MQTT 3.1.1 control packet types, shifted into the high nibble of the
// fixed header.
const (
	packetConnect = 0x10
	packetConnack = 0x20
	packetPublish = 0x30

	connackAccepted = 0x00

	// clean session, no will, no credentials
	connectFlagsCleanSession = 0x02

	maxRemainingLength = 268435455 // 0xFF 0xFF 0xFF 0x7F
	maxFieldLength     = 65535
)

var protocolHeader = []byte{0x00, 0x04, 'M', 'Q', 'T', 'T', 0x04}

// encodeRemainingLength appends the MQTT variable-length encoding of n:
// seven payload bits per byte, continuation bit in the high bit, least
// significant group first.
func encodeRemainingLength(dst []byte, n int) ([]byte, error) {
	if n < 0 || n > maxRemainingLength {
		return nil, fmt.Errorf("%w: remaining length %d out of range", ErrEncoding, n)
	}
	for {
		b := byte(n % 128)
		n /= 128
		if n > 0 {
			b |= 0x80
		}
		dst = append(dst, b)
		if n == 0 {
			return dst, nil
		}
	}
}

func appendLengthPrefixed(dst, field []byte) []byte {
	dst = binary.BigEndian.AppendUint16(dst, uint16(len(field)))
	return append(dst, field...)
}

// connectPacket builds a CONNECT packet requesting a clean session with no
// will and no credentials.
func connectPacket(clientID string, keepAlive uint16) ([]byte, error) {
	if len(clientID) == 0 || len(clientID) > maxFieldLength {
		return nil, fmt.Errorf("%w: client id length %d", ErrEncoding, len(clientID))
	}

	remaining := len(protocolHeader) + 1 + 2 + 2 + len(clientID)
	pkt := []byte{packetConnect}
	pkt, err := encodeRemainingLength(pkt, remaining)
	if err != nil {
		return nil, err
	}
	pkt = append(pkt, protocolHeader...)
	pkt = append(pkt, connectFlagsCleanSession)
	pkt = binary.BigEndian.AppendUint16(pkt, keepAlive)
	pkt = appendLengthPrefixed(pkt, []byte(clientID))
	return pkt, nil
}

// publishPacket builds a QoS 0 PUBLISH with the retain flag clear. QoS 0
// carries no packet identifier.
func publishPacket(topic string, payload []byte) ([]byte, error) {
	if len(topic) == 0 || len(topic) > maxFieldLength {
		return nil, fmt.Errorf("%w: topic length %d", ErrEncoding, len(topic))
	}

	remaining := 2 + len(topic) + len(payload)
	pkt := []byte{packetPublish}
	pkt, err := encodeRemainingLength(pkt, remaining)
	if err != nil {
		return nil, err
	}
	pkt = appendLengthPrefixed(pkt, []byte(topic))
	return append(pkt, payload...), nil
}
