// Package session implements the two sides of a battleship game: the
// authoritative server state machine and the client mirror.
package session

import (
	"log"
	"math/rand"
	"time"

	"battleship/internal/board"
	"battleship/internal/protocol"
	"battleship/internal/transport"
)

// User facing messages
const (
	MsgYouWin             = "You win!"
	MsgYouLose            = "You lose!"
	MsgTimedOut           = "The game timed out!"
	MsgWaitingForOpponent = "Waiting for an opponent to join"
	MsgForcedExit         = "Forceful game termination."
	MsgConnectingFailed   = "Connecting failed, sorry."
	MsgServerFailed       = "We're sorry but server couldn't start."
)

// Role names the side of the game a process plays
type Role string

const (
	RoleServer Role = "server"
	RoleClient Role = "client"
)

// Opponent returns the other role
func (r Role) Opponent() Role {
	if r == RoleServer {
		return RoleClient
	}
	return RoleServer
}

// FirstMove decides which side shoots first
type FirstMove string

const (
	FirstMoveClient FirstMove = "client"
	FirstMoveServer FirstMove = "server"
	FirstMoveRandom FirstMove = "random"
)

// Logic is the surface the presentation layer drives
type Logic interface {
	FireAt(x, y int)
	PlaceShip(x, y int, t board.Template)
	AutoPlace()
	ConfirmShipsPlaced()
	SendMessage(text string)
	Shutdown()

	Snapshot() Snapshot
	Changed() <-chan struct{}
}

// PacketConn is a framed packet connection, see transport.Conn
type PacketConn interface {
	Send(p protocol.Packet, onError func(error)) bool
	Receive(onError func(error)) *protocol.Packet
	Close() error
	RemoteAddr() string
}

// Logger is satisfied by *log.Logger
type Logger interface {
	Printf(format string, v ...any)
}

// Options configures a session
type Options struct {
	// Addr is the listen address of a server or the dial address of a client
	Addr   string
	Width  int
	Height int
	Fleet  board.Fleet

	Timeout          time.Duration
	WatchdogInterval time.Duration
	DialTimeout      time.Duration
	Transport        transport.Config

	FirstMove           FirstMove
	ValidateClientShips bool

	Rand   *rand.Rand
	Logger Logger
}

// DefaultOptions returns the classic 10x10 setup
func DefaultOptions() Options {
	return Options{
		Addr:             "127.0.0.1:8888",
		Width:            10,
		Height:           10,
		Fleet:            board.DefaultFleet(),
		Timeout:          60 * time.Second,
		WatchdogInterval: time.Second,
		DialTimeout:      5 * time.Second,
		Transport:        transport.DefaultConfig(),
		FirstMove:        FirstMoveClient,
	}
}

func (o *Options) normalize() {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Fleet == nil {
		o.Fleet = d.Fleet
	}
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.WatchdogInterval <= 0 {
		o.WatchdogInterval = d.WatchdogInterval
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = d.DialTimeout
	}
	if o.Transport.PollTimeout <= 0 {
		o.Transport.PollTimeout = d.Transport.PollTimeout
	}
	if o.Transport.WriteTimeout <= 0 {
		o.Transport.WriteTimeout = d.Transport.WriteTimeout
	}
	if o.FirstMove == "" {
		o.FirstMove = d.FirstMove
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
}
