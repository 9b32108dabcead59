package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nats-io/nuid"

	"battleship/internal/board"
	"battleship/internal/coord"
	"battleship/internal/protocol"
)

// ErrClosed is returned by Start and Connect after Shutdown
var ErrClosed = errors.New("session closed")

// base holds what the server and the client mirror share: own fleet, the
// presenter, the connection, the journal and the state/teardown plumbing.
type base struct {
	id       string
	role     Role
	prefix   string
	opts     Options
	ui       Presenter
	observer Observer
	notify   *notifier

	mu         sync.Mutex
	state      State
	message    string
	outcome    Outcome
	conn       PacketConn
	own        *board.Board
	journal    []Shot
	startedAt  time.Time
	destructed bool
	onShutdown func()

	ctx    context.Context
	cancel context.CancelFunc
}

func (b *base) init(role Role, prefix string, opts Options, ui Presenter, observer Observer) {
	opts.normalize()
	if ui == nil {
		ui = NopPresenter{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	b.id = nuid.Next()
	b.role = role
	b.prefix = prefix
	b.opts = opts
	b.ui = ui
	b.observer = observer
	b.notify = newNotifier()
	b.state = StateInitial
	b.own = board.New(opts.Width, opts.Height)
	b.startedAt = time.Now()
	b.ctx, b.cancel = context.WithCancel(context.Background())
}

func (b *base) logf(format string, v ...any) {
	b.opts.Logger.Printf(b.prefix+" "+format, v...)
}

// ID returns the session identifier
func (b *base) ID() string {
	return b.id
}

// State returns the current state
func (b *base) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Changed returns a channel closed on the next observable change
func (b *base) Changed() <-chan struct{} {
	return b.notify.C()
}

// Done is closed once the session has been shut down
func (b *base) Done() <-chan struct{} {
	return b.ctx.Done()
}

func (b *base) peerLocked() string {
	if b.conn == nil {
		return ""
	}
	return b.conn.RemoteAddr()
}

func (b *base) emitLocked(e Event) {
	e.SessionID = b.id
	e.Role = b.role
	e.Peer = b.peerLocked()
	e.Width = b.opts.Width
	e.Height = b.opts.Height
	e.StartedAt = b.startedAt
	e.At = time.Now()
	b.observer.Publish(e)
}

// gotoStateLocked moves to state and tells the presenter. FINISHED is
// terminal; later transitions are dropped.
func (b *base) gotoStateLocked(state State, message string) bool {
	if b.state == StateFinished {
		return false
	}
	b.state = state
	b.message = message
	b.logf("State %s %s", state, message)
	b.ui.GotoState(state, message)
	b.emitLocked(Event{Kind: EventState, State: state.String(), Message: message})
	b.notify.broadcast()
	return true
}

func (b *base) finishLocked(outcome Outcome, message string) {
	if !b.gotoStateLocked(StateFinished, message) {
		return
	}
	b.outcome = outcome
	b.emitLocked(Event{
		Kind:    EventFinished,
		State:   StateFinished.String(),
		Message: message,
		Outcome: outcome,
		Shots:   append([]Shot(nil), b.journal...),
	})
}

// sendLocked writes p to the opponent; a failed write shuts the session down
func (b *base) sendLocked(p protocol.Packet) bool {
	if b.conn == nil || b.destructed {
		return false
	}
	return b.conn.Send(p, func(err error) {
		b.logf("Send %s failed: %v", p.Type, err)
		b.shutdownLocked()
	})
}

func (b *base) recordLocked(by Role, target coord.Point, result board.FireResult) {
	shot := newShot(len(b.journal)+1, by, target, result)
	b.journal = append(b.journal, shot)
	b.emitLocked(Event{Kind: EventShot, Shot: &shot})
	b.notify.broadcast()
}

// placeShipLocked puts the next fleet ship on the own board
func (b *base) placeShipLocked(x, y int, t board.Template) bool {
	if b.state != StatePlacingShips {
		b.logf("Ship placement ignored in state %s", b.state)
		return false
	}
	if len(b.own.Ships()) >= len(b.opts.Fleet) {
		b.logf("Ship placement ignored, fleet of %d already placed", len(b.opts.Fleet))
		return false
	}

	ship := b.own.PlaceShip(coord.Pt(x, y), t)
	for _, p := range ship.Points() {
		b.ui.HandlePlaceShipAt(p.X, p.Y)
	}
	b.logf("Placed ship %d at %s with %d cells", len(b.own.Ships()), coord.Pt(x, y), len(ship.Cells))
	b.emitLocked(Event{Kind: EventShipPlaced, Message: coord.Pt(x, y).String()})
	b.notify.broadcast()
	return true
}

// nextTemplateLocked returns the fleet template to be placed next
func (b *base) nextTemplateLocked() (board.Template, bool) {
	placed := len(b.own.Ships())
	if placed >= len(b.opts.Fleet) {
		return nil, false
	}
	return b.opts.Fleet[placed], true
}

// autoPlaceLocked places the rest of the fleet at random positions where every
// cell fits. Templates that fit nowhere are placed at the origin and lose cells.
func (b *base) autoPlaceLocked(place func(x, y int, t board.Template) bool) {
	for {
		t, ok := b.nextTemplateLocked()
		if !ok {
			return
		}
		origin, fits := b.own.RandomOrigin(b.opts.Rand, t)
		if !fits {
			b.logf("No free position for a ship of %d cells", t.Size())
		}
		if !place(origin.X, origin.Y, t) {
			return
		}
	}
}

func (b *base) handleMessageLocked(text string) {
	b.logf("Message from opponent: %s", text)
	if mh, ok := b.ui.(MessageHandler); ok {
		mh.HandleMessage(text)
	}
	b.emitLocked(Event{Kind: EventMessage, Message: text})
}

// SendMessage sends a chat line to the opponent
func (b *base) SendMessage(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sendLocked(protocol.NewPacket(protocol.TypeMessage, text)) {
		b.emitLocked(Event{Kind: EventMessage, Message: text})
	}
}

// Shutdown notifies the opponent, closes the connection and tears down the
// presenter. It is safe to call more than once.
func (b *base) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownLocked()
}

func (b *base) shutdownLocked() {
	if b.destructed {
		return
	}
	b.destructed = true
	b.logf("Shutting down")

	if b.conn != nil {
		b.conn.Send(protocol.NewPacket(protocol.TypeFin), func(err error) {
			b.logf("FIN not delivered: %v", err)
		})
		if err := b.conn.Close(); err != nil {
			b.logf("Close error: %v", err)
		}
	}
	if b.onShutdown != nil {
		b.onShutdown()
	}
	b.finishLocked(OutcomeTerminated, MsgForcedExit)
	b.cancel()
	b.ui.Shutdown()
	b.notify.broadcast()
}

func (b *base) isDestructed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destructed
}

func (b *base) closed() bool {
	return b.ctx.Err() != nil
}

// watch shuts the session down when ctx ends
func (b *base) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		b.Shutdown()
	case <-b.ctx.Done():
	}
}

// receiveLoop feeds packets to handle until the session or ctx ends
func (b *base) receiveLoop(ctx context.Context, handle func(protocol.Packet)) {
	for ctx.Err() == nil && !b.closed() {
		p := b.conn.Receive(func(err error) {
			if b.closed() {
				return
			}
			b.logf("Receive failed: %v", err)
			b.Shutdown()
		})
		if p == nil {
			continue
		}
		handle(*p)
	}
}

// Snapshot returns a copy of the session's observable state
func (b *base) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snapshotLocked()
}

func (b *base) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID: b.id,
		Role:      b.role,
		State:     b.state.String(),
		Phase:     b.state.Phase(),
		Message:   b.message,
		Outcome:   b.outcome,
		Peer:      b.peerLocked(),
		Width:     b.opts.Width,
		Height:    b.opts.Height,
		FleetSize: len(b.opts.Fleet),
		Ships:     shipViews(b.own.Ships()),
		Shots:     append([]Shot{}, b.journal...),
		StartedAt: b.startedAt,
	}
	switch b.state {
	case StateYourTurn:
		snap.Turn = b.role
	case StateOpponentsTurn:
		snap.Turn = b.role.Opponent()
	}
	return snap
}
