package playback

// OpenResultMsg carries the outcome of an asynchronous Resource.Open back to
// the event loop. Seq tags the request so superseded results can be dropped.
type OpenResultMsg struct {
	Identity Identity
	Seq      uint64
	Session  Session
	Err      error
}

// FinishedMsg reports that the session opened under Seq has ended.
type FinishedMsg struct {
	Identity Identity
	Seq      uint64
}

// Reason says why a message returned to Stopped.
type Reason int

const (
	// Displaced means another message requested playback.
	Displaced Reason = iota
	// Finished means the audio played to the end.
	Finished
	// OpenFailed means the source could not be opened.
	OpenFailed
	// Halted means playback was stopped explicitly.
	Halted
)

func (r Reason) String() string {
	switch r {
	case Displaced:
		return "displaced"
	case Finished:
		return "finished"
	case OpenFailed:
		return "open failed"
	case Halted:
		return "halted"
	default:
		return "unknown"
	}
}

// Notice tells subscribers that Identity became Stopped.
type Notice struct {
	Identity Identity
	Reason   Reason
	Err      error // set for OpenFailed
}
