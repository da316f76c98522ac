package telemetry

import (
	"context"
	"errors"
	"io"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBroker accepts connections and runs the scripted server side of the
// connect-then-publish exchange.
type fakeBroker struct {
	ln       net.Listener
	accepted atomic.Int64
	connack  []byte
	packets  chan brokerPacket
}

type brokerPacket struct {
	header byte
	body   []byte
}

func newFakeBroker(t *testing.T, connack []byte) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	b := &fakeBroker{ln: ln, connack: connack, packets: make(chan brokerPacket, 4)}
	t.Cleanup(func() { ln.Close() })
	go b.serve()
	return b
}

func (b *fakeBroker) serve() {
	for {
		conn, err := b.ln.Accept()
		if err != nil {
			return
		}
		b.accepted.Add(1)
		go b.handle(conn)
	}
}

func (b *fakeBroker) handle(conn net.Conn) {
	defer conn.Close()
	for {
		header, body, err := readPacket(conn)
		if err != nil {
			return
		}
		b.packets <- brokerPacket{header: header, body: body}
		if header&0xF0 == packetConnect {
			if _, err := conn.Write(b.connack); err != nil {
				return
			}
		}
	}
}

func readPacket(conn net.Conn) (byte, []byte, error) {
	var header [1]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return 0, nil, err
	}
	remaining := 0
	for shift := 0; ; shift += 7 {
		var b [1]byte
		if _, err := io.ReadFull(conn, b[:]); err != nil {
			return 0, nil, err
		}
		remaining |= int(b[0]&0x7F) << shift
		if b[0]&0x80 == 0 {
			break
		}
	}
	body := make([]byte, remaining)
	if _, err := io.ReadFull(conn, body); err != nil {
		return 0, nil, err
	}
	return header[0], body, nil
}

func (b *fakeBroker) addr() (string, int) {
	tcp := b.ln.Addr().(*net.TCPAddr)
	return tcp.IP.String(), tcp.Port
}

func (b *fakeBroker) nextPacket(t *testing.T) brokerPacket {
	t.Helper()
	select {
	case p := <-b.packets:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broker packet")
		return brokerPacket{}
	}
}

func newTestPublisher(b *fakeBroker) *Publisher {
	host, port := b.addr()
	return NewPublisher(Config{
		BrokerHost:     host,
		BrokerPort:     port,
		ClientID:       "test-station",
		KeepAlive:      60,
		ConnectTimeout: time.Second,
		IOTimeout:      time.Second,
	})
}

func TestPublish(t *testing.T) {
	broker := newFakeBroker(t, []byte{packetConnack, 0x02, 0x00, connackAccepted})
	p := newTestPublisher(broker)

	if err := p.Publish(context.Background(), "enviro/heartbeat", []byte(`{"message":"alive","sequence":1}`)); err != nil {
		t.Fatalf("Publish() error = %v, want nil", err)
	}

	connect := broker.nextPacket(t)
	if connect.header != packetConnect {
		t.Fatalf("first packet header = %#x, want CONNECT", connect.header)
	}
	// client id sits after the 10-byte variable header
	if got, want := string(connect.body[12:]), "test-station"; got != want {
		t.Errorf("connect client id = %q, want %q", got, want)
	}

	publish := broker.nextPacket(t)
	if publish.header != packetPublish {
		t.Fatalf("second packet header = %#x, want PUBLISH QoS0", publish.header)
	}
	topicLen := int(publish.body[0])<<8 | int(publish.body[1])
	if got, want := string(publish.body[2:2+topicLen]), "enviro/heartbeat"; got != want {
		t.Errorf("publish topic = %q, want %q", got, want)
	}
	if got, want := string(publish.body[2+topicLen:]), `{"message":"alive","sequence":1}`; got != want {
		t.Errorf("publish payload = %q, want %q", got, want)
	}
}

func TestPublish_OneConnectionPerMessage(t *testing.T) {
	broker := newFakeBroker(t, []byte{packetConnack, 0x02, 0x00, connackAccepted})
	p := newTestPublisher(broker)

	for i := 0; i < 3; i++ {
		if err := p.Publish(context.Background(), "enviro/status", []byte(`{}`)); err != nil {
			t.Fatalf("Publish() #%d error = %v, want nil", i+1, err)
		}
	}

	if got := broker.accepted.Load(); got != 3 {
		t.Errorf("broker connections = %d, want 3", got)
	}
}

func TestPublish_BrokerRejects(t *testing.T) {
	// return code 5: not authorized
	broker := newFakeBroker(t, []byte{packetConnack, 0x02, 0x00, 0x05})
	p := newTestPublisher(broker)

	err := p.Publish(context.Background(), "enviro/status", []byte(`{}`))
	if !errors.Is(err, ErrBrokerRejected) {
		t.Fatalf("Publish() error = %v, want ErrBrokerRejected", err)
	}
}

func TestPublish_UnexpectedResponse(t *testing.T) {
	// a PUBLISH where a CONNACK belongs
	broker := newFakeBroker(t, []byte{packetPublish, 0x02, 0x00, 0x00})
	p := newTestPublisher(broker)

	err := p.Publish(context.Background(), "enviro/status", []byte(`{}`))
	if !errors.Is(err, ErrBrokerRejected) {
		t.Fatalf("Publish() error = %v, want ErrBrokerRejected", err)
	}
}

func TestPublish_BrokerUnreachable(t *testing.T) {
	broker := newFakeBroker(t, nil)
	p := newTestPublisher(broker)
	broker.ln.Close()

	err := p.Publish(context.Background(), "enviro/status", []byte(`{}`))
	if !errors.Is(err, ErrConnectTimeout) {
		t.Fatalf("Publish() error = %v, want ErrConnectTimeout", err)
	}
}

func TestPublish_EncodingFailureSkipsDial(t *testing.T) {
	p := NewPublisher(Config{BrokerHost: "127.0.0.1", BrokerPort: 1883, ClientID: "test-station"})
	var dials atomic.Int64
	p.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		dials.Add(1)
		return nil, errors.New("should not be called")
	}

	err := p.Publish(context.Background(), "", []byte(`{}`))
	if !errors.Is(err, ErrEncoding) {
		t.Fatalf("Publish() error = %v, want ErrEncoding", err)
	}
	if got := dials.Load(); got != 0 {
		t.Errorf("dial count = %d, want 0", got)
	}
}
