package transport

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"

	"battleship/internal/protocol"
)

func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			accepted <- nil
			return
		}
		accepted <- conn
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	server := <-accepted
	if server == nil {
		t.Fatalf("accept failed")
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return server, client
}

func testConfig() Config {
	return Config{PollTimeout: 20 * time.Millisecond, WriteTimeout: time.Second}
}

func receiveWithin(t *testing.T, c *Conn, onError func(error)) *protocol.Packet {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := c.Receive(onError); p != nil {
			return p
		}
	}
	t.Fatalf("no packet received")
	return nil
}

func TestFrameRoundTrip(t *testing.T) {
	payload, err := protocol.JSONCodec{}.Encode(protocol.NewPacket(protocol.TypeFire, "C3=HIT"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	frame := Frame(payload)
	if got := binary.LittleEndian.Uint16(frame); int(got) != len(payload) {
		t.Fatalf("prefix %d, payload %d", got, len(payload))
	}

	got, rest, ok := ScanFrame(frame)
	if !ok {
		t.Fatalf("ScanFrame found no frame")
	}
	if len(rest) != 0 || !bytes.Equal(got, payload) {
		t.Fatalf("ScanFrame returned %q rest %q", got, rest)
	}

	p, err := protocol.JSONCodec{}.Decode(got)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if p.Type != protocol.TypeFire || p.Data != "C3=HIT" {
		t.Fatalf("unexpected packet %v", p)
	}
}

func TestScanFramePartial(t *testing.T) {
	frame := Frame([]byte("hello"))
	stream := append(append([]byte{}, frame...), Frame([]byte("x"))...)

	for cut := 0; cut < len(frame); cut++ {
		payload, rest, ok := ScanFrame(stream[:cut])
		if ok || payload != nil || len(rest) != cut {
			t.Fatalf("cut %d: expected incomplete frame", cut)
		}
	}

	payload, rest, _ := ScanFrame(stream)
	if string(payload) != "hello" {
		t.Fatalf("expected first payload, got %q", payload)
	}
	payload, rest, _ = ScanFrame(rest)
	if string(payload) != "x" || len(rest) != 0 {
		t.Fatalf("expected second payload, got %q rest %q", payload, rest)
	}
}

func TestFrameTooLargePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for oversized payload")
		}
	}()
	Frame(make([]byte, MaxPayload+1))
}

func TestFrameMaxPayload(t *testing.T) {
	frame := Frame(make([]byte, MaxPayload))
	if len(frame) != HeaderSize+MaxPayload {
		t.Fatalf("unexpected frame length %d", len(frame))
	}
}

func TestSendReceive(t *testing.T) {
	a, b := tcpPair(t)
	sender := NewConn(a, testConfig())
	receiver := NewConn(b, testConfig())

	var sendErr error
	want := []protocol.Packet{
		protocol.NewPacket(protocol.TypeYourTurn),
		protocol.NewPacket(protocol.TypeFire, "C3=HIT"),
		protocol.NewPacket(protocol.TypeMessage, "ahoj, ľudia"),
	}
	for _, p := range want {
		if !sender.Send(p, func(err error) { sendErr = err }) {
			t.Fatalf("send failed: %v", sendErr)
		}
	}

	for _, w := range want {
		got := receiveWithin(t, receiver, func(err error) { t.Fatalf("unexpected receive error: %v", err) })
		if *got != w {
			t.Fatalf("expected %v, got %v", w, *got)
		}
	}
}

func TestReceiveSplitAndCoalescedFrames(t *testing.T) {
	a, b := tcpPair(t)
	receiver := NewConn(b, testConfig())
	noError := func(err error) { t.Fatalf("unexpected receive error: %v", err) }

	first, _ := protocol.JSONCodec{}.Encode(protocol.NewPacket(protocol.TypeFire, "B2"))
	frame := Frame(first)
	if _, err := a.Write(frame[:3]); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	second, _ := protocol.JSONCodec{}.Encode(protocol.NewPacket(protocol.TypeYourTurn))
	tail := append(append([]byte{}, frame[3:]...), Frame(second)...)
	if _, err := a.Write(tail); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got := receiveWithin(t, receiver, noError)
	if got.Type != protocol.TypeFire || got.Data != "B2" {
		t.Fatalf("expected FIRE(B2), got %v", got)
	}
	got = receiveWithin(t, receiver, noError)
	if got.Type != protocol.TypeYourTurn {
		t.Fatalf("expected YOUR_TURN, got %v", got)
	}
}

func TestReceiveNothingAvailable(t *testing.T) {
	_, b := tcpPair(t)
	receiver := NewConn(b, testConfig())

	start := time.Now()
	if p := receiver.Receive(func(err error) { t.Fatalf("unexpected error: %v", err) }); p != nil {
		t.Fatalf("expected nil, got %v", p)
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Receive blocked too long")
	}
}

func TestReceiveGarbage(t *testing.T) {
	a, b := tcpPair(t)
	receiver := NewConn(b, testConfig())

	if _, err := a.Write(Frame([]byte("not a packet"))); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	var failed error
	p := receiveWithin(t, receiver, func(err error) { failed = err })
	if p.Type != protocol.TypeError {
		t.Fatalf("expected ERROR packet, got %v", p)
	}
	if failed == nil {
		t.Fatalf("expected error handler to run")
	}
}

func TestReceivePeerClosed(t *testing.T) {
	a, b := tcpPair(t)
	receiver := NewConn(b, testConfig())
	a.Close()

	var failed error
	deadline := time.Now().Add(2 * time.Second)
	for failed == nil && time.Now().Before(deadline) {
		if p := receiver.Receive(func(err error) { failed = err }); p != nil {
			t.Fatalf("unexpected packet %v", p)
		}
	}
	if failed == nil {
		t.Fatalf("expected error handler after peer closed")
	}
}

func TestSendAfterClose(t *testing.T) {
	a, _ := tcpPair(t)
	c := NewConn(a, testConfig())

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}

	var failed error
	if c.Send(protocol.NewPacket(protocol.TypeFin), func(err error) { failed = err }) {
		t.Fatalf("send on closed conn should fail")
	}
	if failed == nil {
		t.Fatalf("expected error handler to run")
	}
}
