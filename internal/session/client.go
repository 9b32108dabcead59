package session

import (
	"context"
	"fmt"
	"net"

	"battleship/internal/board"
	"battleship/internal/coord"
	"battleship/internal/protocol"
	"battleship/internal/transport"
)

// Client mirrors the server's decisions. It keeps its own fleet locally until
// it is submitted and otherwise only reports what the server tells it.
type Client struct {
	base

	submitted bool
}

// NewClient creates a client session. ui and observer may be nil.
func NewClient(opts Options, ui Presenter, observer Observer) *Client {
	c := &Client{}
	c.init(RoleClient, "[Client]", opts, ui, observer)
	return c
}

// Connect dials the server and plays the game until it ends or ctx is
// cancelled.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.destructed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.gotoStateLocked(StateConnecting, "")
	c.mu.Unlock()

	c.logf("Connecting to %s", c.opts.Addr)
	d := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.opts.Addr)
	if err != nil {
		c.logf("Connecting failed: %v", err)
		c.mu.Lock()
		c.finishLocked(OutcomeFailed, MsgConnectingFailed)
		c.mu.Unlock()
		return fmt.Errorf("failed to connect to %s: %w", c.opts.Addr, err)
	}

	go c.watch(ctx)
	c.Attach(transport.NewConn(conn, c.opts.Transport))
	if c.isDestructed() {
		return ErrClosed
	}
	c.Run(ctx)
	return nil
}

// Attach binds the server connection and opens ship placement
func (c *Client) Attach(conn PacketConn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destructed {
		conn.Close()
		return
	}
	c.conn = conn
	c.logf("Connected to %s", conn.RemoteAddr())
	c.gotoStateLocked(StatePlacingShips, "")
}

// Run serves the attached connection until the session ends
func (c *Client) Run(ctx context.Context) {
	c.receiveLoop(ctx, c.Handle)
}

// Handle applies one packet from the server
func (c *Client) Handle(p protocol.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destructed {
		return
	}
	if !p.Type.Known() {
		c.logf("Unknown packet type %q ignored", p.Type)
		return
	}

	switch p.Type {
	case protocol.TypeMessage:
		c.handleMessageLocked(p.Data)
	case protocol.TypeFire:
		ev, err := protocol.ParseFireEvent(p.Data)
		if err != nil {
			c.logf("Server fire rejected: %v", err)
			return
		}
		c.logf("Server fired at %s: %s", ev.Target, ev.Result)
		if ev.Result.IsHit() {
			c.own.FireAt(ev.Target)
			c.ui.HandleHitAt(ev.Target.X, ev.Target.Y)
		} else {
			c.ui.HandleMissAt(ev.Target.X, ev.Target.Y)
		}
		c.recordLocked(RoleServer, ev.Target, ev.Result)
	case protocol.TypeFireResponse:
		ev, err := protocol.ParseFireEvent(p.Data)
		if err != nil {
			c.logf("Fire response rejected: %v", err)
			return
		}
		c.logf("Fired at %s: %s", ev.Target, ev.Result)
		if ev.Result.IsHit() {
			c.ui.HandleHitOpponentAt(ev.Target.X, ev.Target.Y)
		} else {
			c.ui.HandleMissOpponentAt(ev.Target.X, ev.Target.Y)
		}
		c.recordLocked(RoleClient, ev.Target, ev.Result)
	case protocol.TypeYourTurn:
		c.gotoStateLocked(StateYourTurn, "")
	case protocol.TypeOpponentsTurn:
		c.gotoStateLocked(StateOpponentsTurn, "")
	case protocol.TypeYouWin:
		c.finishLocked(OutcomeWon, orDefault(p.Data, MsgYouWin))
	case protocol.TypeYouLose:
		c.finishLocked(OutcomeLost, orDefault(p.Data, MsgYouLose))
	case protocol.TypeTimedOut:
		c.finishLocked(OutcomeTimedOut, MsgTimedOut)
	case protocol.TypeFin:
		c.logf("Game forcefully terminated by the server")
		c.finishLocked(OutcomeTerminated, MsgForcedExit)
	case protocol.TypeError:
		c.logf("Undecodable packet from the server: %s", p.Data)
	default:
		c.logf("Unexpected packet %s ignored", p)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// PlaceShip places the next fleet ship locally
func (c *Client) PlaceShip(x, y int, t board.Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placeShipLocked(x, y, t)
}

func (c *Client) placeShipLocked(x, y int, t board.Template) bool {
	if c.submitted {
		c.logf("Ships already submitted")
		return false
	}
	return c.base.placeShipLocked(x, y, t)
}

// AutoPlace places the remaining fleet at random
func (c *Client) AutoPlace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoPlaceLocked(c.placeShipLocked)
}

// ConfirmShipsPlaced submits the local fleet to the server. It is sent once.
func (c *Client) ConfirmShipsPlaced() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.submitted || c.state != StatePlacingShips {
		c.logf("Ship submission ignored in state %s", c.state)
		return
	}
	if n := len(c.own.Ships()); n < len(c.opts.Fleet) {
		c.logf("Submitting %d of %d ships", n, len(c.opts.Fleet))
	}

	p, err := protocol.ShipsPacket(c.own.Layout())
	if err != nil {
		c.logf("Cannot submit ships: %v", err)
		return
	}
	if !c.sendLocked(p) {
		return
	}
	c.submitted = true
	c.emitLocked(Event{Kind: EventShipsSubmitted, Message: string(RoleClient)})
	c.notify.broadcast()
}

// FireAt asks the server to resolve a shot. The server decides whether it is
// the client's turn; the result arrives as FIRE_RESPONSE.
func (c *Client) FireAt(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	target := coord.Pt(x, y)
	if c.destructed || c.state == StateFinished {
		return
	}
	if !c.own.InBounds(target) {
		c.logf("Firing outside the field at %s ignored", target)
		return
	}
	if c.state != StateYourTurn {
		c.logf("Firing at %s while in state %s", target, c.state)
	}
	c.sendLocked(protocol.NewPacket(protocol.TypeFire, target.Label()))
}

var _ Logic = (*Client)(nil)
