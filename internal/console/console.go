// Package console is a line-oriented terminal presenter. It renders both grids
// with text/tabwriter and turns typed commands into session calls.
package console

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"battleship/internal/board"
	"battleship/internal/coord"
	"battleship/internal/session"
)

type mark byte

const (
	unknown mark = '~'
	ship    mark = 'S'
	hit     mark = 'X'
	miss    mark = 'O'
)

const help = `commands:
  place <cell>   place the next ship with its origin at <cell>, e.g. place C3
  auto           place the remaining ships at random
  done           confirm the placement
  fire <cell>    shoot at the opponent, e.g. fire B7
  say <text>     send a chat message
  board          redraw the grids
  quit           leave the game`

// Console implements session.Presenter on a pair of streams
type Console struct {
	in     io.Reader
	out    io.Writer
	width  int
	height int
	fleet  board.Fleet
	poll   time.Duration

	mu      sync.Mutex
	state   session.State
	message string
	own     map[coord.Point]mark
	enemy   map[coord.Point]mark
	notices []string

	done     chan struct{}
	doneOnce sync.Once
}

// New creates a console for a width x height game
func New(in io.Reader, out io.Writer, width, height int, fleet board.Fleet, poll time.Duration) *Console {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	return &Console{
		in:     in,
		out:    out,
		width:  width,
		height: height,
		fleet:  fleet,
		poll:   poll,
		own:    make(map[coord.Point]mark),
		enemy:  make(map[coord.Point]mark),
		done:   make(chan struct{}),
	}
}

func (c *Console) notice(format string, v ...any) {
	c.notices = append(c.notices, fmt.Sprintf(format, v...))
}

func (c *Console) GotoState(state session.State, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.message = message
}

func (c *Console) HandleHitAt(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.own[coord.Pt(x, y)] = hit
	c.notice("Opponent hit %s", coord.Pt(x, y))
}

func (c *Console) HandleMissAt(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.own[coord.Pt(x, y)] = miss
	c.notice("Opponent missed at %s", coord.Pt(x, y))
}

func (c *Console) HandleHitOpponentAt(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enemy[coord.Pt(x, y)] = hit
	c.notice("Hit at %s", coord.Pt(x, y))
}

func (c *Console) HandleMissOpponentAt(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enemy[coord.Pt(x, y)] = miss
	c.notice("Missed at %s", coord.Pt(x, y))
}

func (c *Console) HandlePlaceShipAt(x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.own[coord.Pt(x, y)] = ship
}

func (c *Console) HandleMessage(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice("Opponent says: %s", text)
}

func (c *Console) Shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Run reads commands and redraws on every session change until the session
// shuts down, input ends or ctx is cancelled.
func (c *Console) Run(ctx context.Context, logic session.Logic) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-c.done:
				return
			}
		}
	}()

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	fmt.Fprintln(c.out, help)
	lastState := session.StateInitial
	for {
		changed := logic.Changed()
		if state := c.currentState(); state != lastState {
			lastState = state
			c.render(logic.Snapshot())
		} else {
			c.flushNotices()
		}

		select {
		case <-ctx.Done():
			return
		case <-c.done:
			c.flushNotices()
			return
		case line, ok := <-lines:
			if !ok {
				logic.Shutdown()
				return
			}
			c.Execute(logic, line)
		case <-changed:
		case <-ticker.C:
		}
	}
}

func (c *Console) currentState() session.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Execute runs one command line against logic
func (c *Console) Execute(logic session.Logic, line string) {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "place", "p":
		p, err := coord.Parse(arg)
		if err != nil {
			fmt.Fprintf(c.out, "bad cell %q\n", arg)
			return
		}
		placed := len(logic.Snapshot().Ships)
		if placed >= len(c.fleet) {
			fmt.Fprintln(c.out, "all ships placed, type done")
			return
		}
		logic.PlaceShip(p.X, p.Y, c.fleet[placed])
	case "auto":
		logic.AutoPlace()
	case "done":
		logic.ConfirmShipsPlaced()
	case "fire", "f":
		p, err := coord.Parse(arg)
		if err != nil {
			fmt.Fprintf(c.out, "bad cell %q\n", arg)
			return
		}
		logic.FireAt(p.X, p.Y)
	case "say":
		logic.SendMessage(arg)
	case "board", "b":
		c.render(logic.Snapshot())
	case "quit", "q", "exit":
		logic.Shutdown()
	case "help", "?":
		fmt.Fprintln(c.out, help)
	default:
		fmt.Fprintf(c.out, "unknown command %q, type help\n", cmd)
	}
}

func (c *Console) flushNotices() {
	c.mu.Lock()
	notices := c.notices
	c.notices = nil
	c.mu.Unlock()

	for _, n := range notices {
		fmt.Fprintln(c.out, n)
	}
}

func (c *Console) render(snap session.Snapshot) {
	c.flushNotices()

	c.mu.Lock()
	own := c.grid(c.own)
	enemy := c.grid(c.enemy)
	c.mu.Unlock()

	fmt.Fprintf(c.out, "\nYour fleet (%d/%d ships)\n%s", len(snap.Ships), snap.FleetSize, own)
	fmt.Fprintf(c.out, "Opponent\n%s", enemy)

	status := snap.State
	if snap.Message != "" {
		status += ": " + snap.Message
	}
	fmt.Fprintln(c.out, status)
}

// grid draws marks on a labelled width x height table
func (c *Console) grid(marks map[coord.Point]mark) string {
	var buffer bytes.Buffer
	w := tabwriter.NewWriter(&buffer, 2, 0, 1, ' ', 0)

	fmt.Fprint(w, "\t")
	for x := 0; x < c.width; x++ {
		fmt.Fprint(w, coord.Column(x)+"\t")
	}
	fmt.Fprint(w, "\n")

	for y := 0; y < c.height; y++ {
		fmt.Fprintf(w, "%d\t", y+1)
		for x := 0; x < c.width; x++ {
			m, ok := marks[coord.Pt(x, y)]
			if !ok {
				m = unknown
			}
			fmt.Fprintf(w, "%c\t", m)
		}
		fmt.Fprint(w, "\n")
	}
	w.Flush()
	return buffer.String()
}

var _ session.Presenter = (*Console)(nil)
