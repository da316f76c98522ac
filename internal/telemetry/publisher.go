package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// Config configures a Publisher.
type Config struct {
	BrokerHost string
	BrokerPort int
	ClientID   string
	KeepAlive  uint16
	// ConnectTimeout bounds the TCP dial and the CONNECT/CONNACK
	// exchange; IOTimeout bounds each subsequent read or write.
	ConnectTimeout time.Duration
	IOTimeout      time.Duration

	Logger *slog.Logger
}

// Publisher delivers individual messages over short-lived broker
// connections: each Publish dials, performs the connect handshake, sends one
// PUBLISH, and closes. Nothing is queued or retried; a failed publish is
// simply reported.
type Publisher struct {
	cfg  Config
	dial func(ctx context.Context, addr string) (net.Conn, error)
}

func NewPublisher(cfg Config) *Publisher {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.IOTimeout <= 0 {
		cfg.IOTimeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	var d net.Dialer
	return &Publisher{
		cfg: cfg,
		dial: func(ctx context.Context, addr string) (net.Conn, error) {
			return d.DialContext(ctx, "tcp", addr)
		},
	}
}

// Publish sends one message at QoS 0. Encoding failures are reported before
// any connection is opened.
func (p *Publisher) Publish(ctx context.Context, topic string, payload []byte) error {
	connect, err := connectPacket(p.cfg.ClientID, p.cfg.KeepAlive)
	if err != nil {
		return err
	}
	publish, err := publishPacket(topic, payload)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()
	addr := net.JoinHostPort(p.cfg.BrokerHost, strconv.Itoa(p.cfg.BrokerPort))
	conn, err := p.dial(dialCtx, addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrConnectTimeout, addr, err)
	}
	defer conn.Close()

	if err := p.handshake(conn, connect); err != nil {
		return err
	}

	conn.SetWriteDeadline(time.Now().Add(p.cfg.IOTimeout))
	if _, err := conn.Write(publish); err != nil {
		return fmt.Errorf("%w: publish to %q: %v", ErrWriteFailed, topic, err)
	}

	p.cfg.Logger.Debug("published", "topic", topic, "bytes", len(payload))
	return nil
}

func (p *Publisher) handshake(conn net.Conn, connect []byte) error {
	conn.SetDeadline(time.Now().Add(p.cfg.ConnectTimeout))
	defer conn.SetDeadline(time.Time{})

	if _, err := conn.Write(connect); err != nil {
		return fmt.Errorf("%w: send connect: %v", ErrWriteFailed, err)
	}

	// CONNACK is always 4 bytes: type, remaining length 2, flags,
	// return code.
	var ack [4]byte
	if _, err := io.ReadFull(conn, ack[:]); err != nil {
		return fmt.Errorf("%w: read connack: %v", ErrWriteFailed, err)
	}
	if ack[0] != packetConnack || ack[1] != 0x02 {
		return fmt.Errorf("%w: unexpected response %#x", ErrBrokerRejected, ack[0])
	}
	if ack[3] != connackAccepted {
		return fmt.Errorf("%w: return code %d", ErrBrokerRejected, ack[3])
	}
	return nil
}
