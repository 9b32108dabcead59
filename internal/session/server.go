package session

import (
	"context"
	"fmt"
	"net"

	"battleship/internal/board"
	"battleship/internal/coord"
	"battleship/internal/protocol"
	"battleship/internal/transport"
	"battleship/internal/watchdog"
)

// Server is the authoritative side of a game. It holds both fleets, resolves
// every shot and decides turns and the outcome.
type Server struct {
	base

	listener      net.Listener
	opponent      *board.Board
	opponentReady bool
	myTurn        bool
	dog           *watchdog.Watchdog
}

// NewServer creates a server session. ui and observer may be nil.
func NewServer(opts Options, ui Presenter, observer Observer) *Server {
	s := &Server{}
	s.init(RoleServer, "[Server]", opts, ui, observer)
	s.opponent = board.New(s.opts.Width, s.opts.Height)
	s.dog = watchdog.New(s.opts.Timeout, s.opts.WatchdogInterval)

	switch s.opts.FirstMove {
	case FirstMoveServer:
		s.myTurn = true
	case FirstMoveRandom:
		s.myTurn = s.opts.Rand.Intn(2) == 0
	}

	s.onShutdown = func() {
		s.dog.Stop()
		if s.listener != nil {
			s.listener.Close()
			s.listener = nil
		}
	}
	return s
}

// Addr returns the listening address while waiting for an opponent
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start listens on the configured address, accepts exactly one opponent and
// plays the game until it ends or ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		s.logf("Cannot listen on %s: %v", s.opts.Addr, err)
		s.mu.Lock()
		s.finishLocked(OutcomeFailed, MsgServerFailed)
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Addr, err)
	}

	s.mu.Lock()
	if s.destructed {
		s.mu.Unlock()
		listener.Close()
		return ErrClosed
	}
	s.listener = listener
	s.logf("Listening on %s", listener.Addr())
	s.gotoStateLocked(StateWaitingForConnection, MsgWaitingForOpponent)
	s.mu.Unlock()

	go s.watch(ctx)

	conn, err := listener.Accept()
	if err != nil {
		if s.isDestructed() {
			return ErrClosed
		}
		s.logf("Accept error: %v", err)
		s.mu.Lock()
		s.finishLocked(OutcomeFailed, MsgServerFailed)
		s.mu.Unlock()
		return fmt.Errorf("failed to accept opponent: %w", err)
	}

	// One opponent per game
	s.mu.Lock()
	s.listener = nil
	s.mu.Unlock()
	listener.Close()

	s.Attach(transport.NewConn(conn, s.opts.Transport))
	s.Run(ctx)
	return nil
}

// Attach binds the opponent connection and opens ship placement. The
// inactivity countdown starts here.
func (s *Server) Attach(conn PacketConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destructed {
		conn.Close()
		return
	}
	s.conn = conn
	s.logf("New connection from %s", conn.RemoteAddr())
	s.gotoStateLocked(StatePlacingShips, "")
	s.dog.Ping()
}

// Run serves the attached connection until the session ends
func (s *Server) Run(ctx context.Context) {
	go s.dog.Run(s.ctx, s.handleTimeout)
	s.receiveLoop(ctx, s.Handle)
}

// Handle dispatches one packet from the client
func (s *Server) Handle(p protocol.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destructed {
		return
	}
	if !p.Type.Known() {
		s.logf("Unknown packet type %q ignored", p.Type)
		return
	}

	switch p.Type {
	case protocol.TypeMessage:
		s.handleMessageLocked(p.Data)
	case protocol.TypeFin:
		s.logf("Game forcefully terminated by the client")
		s.dog.Stop()
		s.finishLocked(OutcomeTerminated, MsgForcedExit)
	case protocol.TypeFire:
		s.handleClientFireLocked(p.Data)
	case protocol.TypeSetClientShips:
		s.handleClientShipsLocked(p.Data)
	case protocol.TypeError:
		s.logf("Undecodable packet from the client: %s", p.Data)
	default:
		s.logf("Unexpected packet %s ignored", p)
	}
}

func (s *Server) handleClientShipsLocked(data string) {
	if s.state != StatePlacingShips || s.opponentReady {
		s.logf("Client ships ignored in state %s", s.state)
		return
	}
	layout, err := protocol.ParseShips(data)
	if err != nil {
		s.logf("Client ships rejected: %v", err)
		return
	}

	// A trusted layout is a fairness gap: off-grid or duplicate cells can never
	// be sunk, so the server cannot win. VALIDATE_CLIENT_SHIPS closes it.
	if s.opts.ValidateClientShips {
		s.opponent = board.FromLayoutValidated(s.opts.Width, s.opts.Height, layout)
	} else {
		s.opponent = board.FromLayout(s.opts.Width, s.opts.Height, layout)
	}
	s.opponentReady = true
	s.logf("Client set %d ships", len(s.opponent.Ships()))
	s.emitLocked(Event{Kind: EventShipsSubmitted, Message: string(RoleClient)})
	s.beginLocked()
}

func (s *Server) ownReadyLocked() bool {
	return len(s.own.Ships()) >= len(s.opts.Fleet)
}

// beginLocked starts the battle once both fleets are known
func (s *Server) beginLocked() {
	if s.state != StatePlacingShips || !s.opponentReady || !s.ownReadyLocked() {
		return
	}
	s.logf("Both fleets placed, game starts")
	s.dog.Ping()
	s.announceTurnLocked()
}

func (s *Server) announceTurnLocked() {
	if s.myTurn {
		s.gotoStateLocked(StateYourTurn, "")
		s.sendLocked(protocol.NewPacket(protocol.TypeOpponentsTurn))
	} else {
		s.gotoStateLocked(StateOpponentsTurn, "")
		s.sendLocked(protocol.NewPacket(protocol.TypeYourTurn))
	}
}

func (s *Server) handleClientFireLocked(data string) {
	target, err := protocol.ParseFireTarget(data)
	if err != nil {
		s.logf("Client fire rejected: %v", err)
		return
	}
	if s.state != StateOpponentsTurn || s.myTurn {
		s.logf("Client shooting at %s while not its turn", target)
		return
	}
	if !s.own.InBounds(target) {
		s.logf("Client shooting outside the field at %s", target)
		return
	}

	result := s.own.FireAt(target)
	s.logf("Enemy fired at %s: %s", target, result)

	ev := protocol.FireEvent{Target: target, Result: result}
	if !s.sendLocked(protocol.FirePacket(protocol.TypeFireResponse, ev)) {
		return
	}
	if result.IsHit() {
		s.ui.HandleHitAt(target.X, target.Y)
	} else {
		s.ui.HandleMissAt(target.X, target.Y)
	}
	s.recordLocked(RoleClient, target, result)
	s.switchTurnLocked()
}

// FireAt shoots at the client's fleet. Ignored unless it is the server's turn.
func (s *Server) FireAt(x, y int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := coord.Pt(x, y)
	if s.destructed || s.state != StateYourTurn || !s.myTurn {
		s.logf("Firing at %s ignored in state %s", target, s.state)
		return
	}
	if !s.opponent.InBounds(target) {
		s.logf("Firing outside the field at %s ignored", target)
		return
	}

	result := s.opponent.FireAt(target)
	s.logf("Firing at %s: %s", target, result)

	ev := protocol.FireEvent{Target: target, Result: result}
	if !s.sendLocked(protocol.FirePacket(protocol.TypeFire, ev)) {
		return
	}
	if result.IsHit() {
		s.ui.HandleHitOpponentAt(x, y)
	} else {
		s.ui.HandleMissOpponentAt(x, y)
	}
	s.recordLocked(RoleServer, target, result)
	s.switchTurnLocked()
}

// switchTurnLocked ends the game when a fleet is gone, otherwise hands the
// turn over and resets the inactivity countdown.
func (s *Server) switchTurnLocked() {
	switch {
	case s.own.AllSunk():
		s.dog.Stop()
		s.finishLocked(OutcomeLost, MsgYouLose)
		s.sendLocked(protocol.NewPacket(protocol.TypeYouWin, MsgYouWin))
	case s.opponent.AllSunk():
		s.dog.Stop()
		s.finishLocked(OutcomeWon, MsgYouWin)
		s.sendLocked(protocol.NewPacket(protocol.TypeYouLose, MsgYouLose))
	default:
		s.dog.Ping()
		s.myTurn = !s.myTurn
		s.announceTurnLocked()
	}
}

func (s *Server) handleTimeout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.destructed || s.state == StateFinished {
		return
	}
	s.logf("Game timed out after %s of inactivity", s.opts.Timeout)
	s.finishLocked(OutcomeTimedOut, MsgTimedOut)
	s.sendLocked(protocol.NewPacket(protocol.TypeTimedOut))
}

// PlaceShip places the next fleet ship with its origin at (x, y)
func (s *Server) PlaceShip(x, y int, t board.Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.placeShipLocked(x, y, t)
}

func (s *Server) placeShipLocked(x, y int, t board.Template) bool {
	if !s.base.placeShipLocked(x, y, t) {
		return false
	}
	if s.ownReadyLocked() {
		s.dog.Ping()
		s.emitLocked(Event{Kind: EventShipsSubmitted, Message: string(RoleServer)})
		s.beginLocked()
	}
	return true
}

// AutoPlace places the remaining fleet at random
func (s *Server) AutoPlace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoPlaceLocked(s.placeShipLocked)
}

// ConfirmShipsPlaced is a no-op for the server beyond starting the game when
// the client is already waiting; the fleet counts as placed once complete.
func (s *Server) ConfirmShipsPlaced() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ownReadyLocked() {
		s.logf("%d of %d ships placed", len(s.own.Ships()), len(s.opts.Fleet))
		return
	}
	s.beginLocked()
}

var _ Logic = (*Server)(nil)
