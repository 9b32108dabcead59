package transport

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"battleship/internal/protocol"
)

// Config holds connection tuning
type Config struct {
	// PollTimeout bounds how long Receive waits for the first byte of a frame
	PollTimeout time.Duration
	// WriteTimeout bounds a single frame write
	WriteTimeout time.Duration
}

// DefaultConfig returns the timings used by the game
func DefaultConfig() Config {
	return Config{
		PollTimeout:  100 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// Conn sends and receives packets over a stream connection. Send is safe for
// concurrent use; Receive must be driven by a single reader.
type Conn struct {
	conn   net.Conn
	reader  *bufio.Reader
	chunk   []byte
	pending []byte
	codec   protocol.Codec
	config  Config

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// NewConn wraps an established connection
func NewConn(conn net.Conn, config Config) *Conn {
	return &Conn{
		conn:   conn,
		reader: bufio.NewReader(conn),
		chunk:  make([]byte, 4096),
		codec:  protocol.JSONCodec{},
		config: config,
	}
}

// RemoteAddr returns the peer address
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Send encodes, frames and writes p in one write. On failure onError is invoked
// and false is returned.
func (c *Conn) Send(p protocol.Packet, onError func(error)) bool {
	payload, err := c.codec.Encode(p)
	if err != nil {
		fail(onError, fmt.Errorf("failed to encode %s: %w", p.Type, err))
		return false
	}
	frame := Frame(payload)

	c.writeMu.Lock()
	if c.config.WriteTimeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	_, err = c.conn.Write(frame)
	c.writeMu.Unlock()

	// onError may send again, so it runs outside writeMu
	if err != nil {
		fail(onError, fmt.Errorf("failed to send %s: %w", p.Type, err))
		return false
	}
	return true
}

// Receive returns nil when no bytes arrive within the poll timeout. Once a frame
// has started it blocks until the whole frame is read. A frame that cannot be
// decoded yields an ERROR packet and invokes onError; a read failure invokes
// onError and returns nil.
func (c *Conn) Receive(onError func(error)) *protocol.Packet {
	for {
		if payload, rest, ok := ScanFrame(c.pending); ok {
			c.pending = rest
			return c.decode(payload, onError)
		}

		if len(c.pending) == 0 {
			c.conn.SetReadDeadline(time.Now().Add(c.config.PollTimeout))
		} else {
			c.conn.SetReadDeadline(time.Time{})
		}

		n, err := c.reader.Read(c.chunk)
		c.pending = append(c.pending, c.chunk[:n]...)
		if err == nil {
			continue
		}
		if isTimeout(err) {
			if len(c.pending) == 0 {
				return nil
			}
			continue
		}
		fail(onError, fmt.Errorf("failed to read packet: %w", err))
		return nil
	}
}

func (c *Conn) decode(payload []byte, onError func(error)) *protocol.Packet {
	p, err := c.codec.Decode(payload)
	if err != nil {
		fail(onError, fmt.Errorf("failed to decode packet: %w", err))
		errPacket := protocol.ErrorPacket("Error receiving a packet.")
		return &errPacket
	}
	return &p
}

// Close closes the connection. Repeated calls are no-ops.
func (c *Conn) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if err := c.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func fail(onError func(error), err error) {
	if onError != nil {
		onError(err)
	}
}
