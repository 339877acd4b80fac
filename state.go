package routines

// State describes what a coroutine is currently doing.
type State uint8

const (
	// Completed coroutines have returned from their entrypoint or have
	// been destroyed.
	Completed State = iota

	// Suspended coroutines are detached from every queue and only run
	// again after an explicit Resume.
	Suspended

	// Running coroutines are either executing right now or parked on
	// the ready queue waiting for their turn.
	Running

	// BlockedSend coroutines are parked inside a blocking Send until a
	// receiver consumes their message.
	BlockedSend

	// BlockedRecv coroutines are parked inside Wait, Recv, or Call until
	// a message arrives.
	BlockedRecv

	// BlockedJoin coroutines are parked inside Join until the joined
	// coroutine completes or is destroyed.
	BlockedJoin
)

func (s State) String() string {
	switch s {
	case Completed:
		return "Completed"
	case Suspended:
		return "Suspended"
	case Running:
		return "Running"
	case BlockedSend:
		return "BlockedSend"
	case BlockedRecv:
		return "BlockedRecv"
	case BlockedJoin:
		return "BlockedJoin"
	default:
		return "Invalid"
	}
}
