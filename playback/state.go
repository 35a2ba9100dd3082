package playback

// State represents the playback state of a single message.
type State int

const (
	// Stopped means the message is not associated with the playback resource.
	Stopped State = iota
	// Playing means the message's audio is currently audible.
	Playing
	// Paused means the message holds the resource but output is suspended.
	Paused
)

func (s State) String() string {
	switch s {
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "stopped"
	}
}

// Identity is the stable key of a logical message, independent of the
// cell that currently renders it.
type Identity string

// None is the zero Identity: no message.
const None Identity = ""

// Source locates the audio bytes of a message. It is passed through to the
// Resource unchanged.
type Source string

// Snapshot is a read-only copy of the coordinator's canonical state.
type Snapshot struct {
	Active Identity
	State  State
}
