package session

// State is the stage a game party is in, as shown by the presenter
type State int

const (
	StateInitial State = iota
	StateWaitingForConnection
	StateConnecting
	StatePlacingShips
	StateYourTurn
	StateOpponentsTurn
	StateFinished
)

var stateNames = map[State]string{
	StateInitial:              "INITIAL",
	StateWaitingForConnection: "WAITING_FOR_CONNECTION",
	StateConnecting:           "CONNECTING",
	StatePlacingShips:         "PLACING_SHIPS",
	StateYourTurn:             "YOUR_TURN",
	StateOpponentsTurn:        "OPPONENTS_TURN",
	StateFinished:             "FINISHED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Phase is the coarse lifecycle stage of a session
type Phase string

const (
	PhasePlacing    Phase = "PLACING"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseFinished   Phase = "FINISHED"
)

// Phase maps the state onto the session lifecycle
func (s State) Phase() Phase {
	switch s {
	case StateYourTurn, StateOpponentsTurn:
		return PhaseInProgress
	case StateFinished:
		return PhaseFinished
	default:
		return PhasePlacing
	}
}

// Presenter is the presentation layer driven by the state machines. Calls are
// made while the session lock is held: implementations must return quickly and
// must not call back into the session from inside a callback.
type Presenter interface {
	GotoState(state State, message string)

	// Opponent's shot against me
	HandleHitAt(x, y int)
	HandleMissAt(x, y int)

	// My shot against the opponent
	HandleHitOpponentAt(x, y int)
	HandleMissOpponentAt(x, y int)

	HandlePlaceShipAt(x, y int)
	Shutdown()
}

// MessageHandler is implemented by presenters that show chat lines
type MessageHandler interface {
	HandleMessage(text string)
}

// NopPresenter ignores every notification
type NopPresenter struct{}

func (NopPresenter) GotoState(State, string) {}

func (NopPresenter) HandleHitAt(int, int) {}

func (NopPresenter) HandleMissAt(int, int) {}

func (NopPresenter) HandleHitOpponentAt(int, int) {}

func (NopPresenter) HandleMissOpponentAt(int, int) {}

func (NopPresenter) HandlePlaceShipAt(int, int) {}

func (NopPresenter) Shutdown() {}
