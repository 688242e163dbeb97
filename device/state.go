package device

// State names the MAC engine's steps (spec §4.4's state machine). The
// engine neither stores nor logs a State value: transitions are implicit
// in the call sequence, since Go's type system already prevents calling
// ClassA methods before Join succeeds.
type State int

// Recognized states (spec §4.4).
const (
	StateUnjoined State = iota
	StateJoining
	StateIdle
	StateUplinking
	StateAwaitingRx1
	StateAwaitingRx2
	StateProcessing
)

func (s State) String() string {
	switch s {
	case StateUnjoined:
		return "unjoined"
	case StateJoining:
		return "joining"
	case StateIdle:
		return "idle"
	case StateUplinking:
		return "uplinking"
	case StateAwaitingRx1:
		return "awaiting_rx1"
	case StateAwaitingRx2:
		return "awaiting_rx2"
	case StateProcessing:
		return "processing"
	default:
		return "unknown"
	}
}
