package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"battleship/internal/board"
	"battleship/internal/coord"
	"battleship/internal/protocol"
)

type fakeConn struct {
	mu       sync.Mutex
	sent     []protocol.Packet
	inbox    chan protocol.Packet
	closed   bool
	failSend bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan protocol.Packet, 16)}
}

func (f *fakeConn) Send(p protocol.Packet, onError func(error)) bool {
	f.mu.Lock()
	if f.closed || f.failSend {
		f.mu.Unlock()
		if onError != nil {
			onError(errors.New("broken pipe"))
		}
		return false
	}
	f.sent = append(f.sent, p)
	f.mu.Unlock()
	return true
}

func (f *fakeConn) Receive(onError func(error)) *protocol.Packet {
	select {
	case p := <-f.inbox:
		return &p
	case <-time.After(5 * time.Millisecond):
		return nil
	}
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) RemoteAddr() string { return "fake:1" }

func (f *fakeConn) packets() []protocol.Packet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]protocol.Packet(nil), f.sent...)
}

func (f *fakeConn) last() protocol.Packet {
	sent := f.packets()
	if len(sent) == 0 {
		return protocol.Packet{}
	}
	return sent[len(sent)-1]
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type recorder struct {
	mu        sync.Mutex
	states    []State
	messages  []string
	hits      []coord.Point
	misses    []coord.Point
	oppHits   []coord.Point
	oppMisses []coord.Point
	placed    []coord.Point
	chat      []string
	shutdowns int
}

func (r *recorder) GotoState(s State, msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
	r.messages = append(r.messages, msg)
}

func (r *recorder) HandleHitAt(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hits = append(r.hits, coord.Pt(x, y))
}

func (r *recorder) HandleMissAt(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misses = append(r.misses, coord.Pt(x, y))
}

func (r *recorder) HandleHitOpponentAt(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oppHits = append(r.oppHits, coord.Pt(x, y))
}

func (r *recorder) HandleMissOpponentAt(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.oppMisses = append(r.oppMisses, coord.Pt(x, y))
}

func (r *recorder) HandlePlaceShipAt(x, y int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed = append(r.placed, coord.Pt(x, y))
}

func (r *recorder) HandleMessage(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chat = append(r.chat, text)
}

func (r *recorder) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shutdowns++
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Publish(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) finished() (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.events {
		if e.Kind == EventFinished {
			return e, true
		}
	}
	return Event{}, false
}

var single = board.Template{{X: 0, Y: 0}}

func testOptions(first FirstMove) Options {
	opts := DefaultOptions()
	opts.Width = 2
	opts.Height = 2
	opts.Fleet = board.Fleet{single}
	opts.FirstMove = first
	return opts
}

func shipsPacket(t *testing.T, layout [][]coord.Point) protocol.Packet {
	t.Helper()
	p, err := protocol.ShipsPacket(layout)
	if err != nil {
		t.Fatalf("ShipsPacket: %v", err)
	}
	return p
}

// startedServer returns a server with its ship at B2 and the client's at A1
func startedServer(t *testing.T, first FirstMove) (*Server, *fakeConn, *recorder, *eventLog) {
	t.Helper()
	rec := &recorder{}
	events := &eventLog{}
	s := NewServer(testOptions(first), rec, events)
	conn := newFakeConn()
	s.Attach(conn)
	s.PlaceShip(1, 1, single)
	s.Handle(shipsPacket(t, [][]coord.Point{{coord.Pt(0, 0)}}))
	return s, conn, rec, events
}

func waitFor(t *testing.T, l Logic, what string, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		ch := l.Changed()
		snap := l.Snapshot()
		if cond(snap) {
			return snap
		}
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("timed out waiting for %s, last state %s", what, snap.State)
		}
	}
}
