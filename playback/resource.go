package playback

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Resource is the audio output device. It hands out at most one live
// Session at a time as far as the Coordinator is concerned.
type Resource interface {
	// Open prepares src for playback without starting it. It may block on
	// file IO and decoding and is never called on the event loop. The
	// context is cancelled when the open is superseded.
	Open(ctx context.Context, src Source) (Session, error)
}

// Session is one decoder/player session produced by Resource.Open.
type Session interface {
	// Play starts or resumes output.
	Play()
	// Pause suspends output, keeping the position.
	Pause()
	// Stop ends the session and releases its decoder. Safe to call twice.
	Stop()
	// CurrentTime reports the elapsed playback position.
	CurrentTime() time.Duration
	// Duration reports the total length of the source.
	Duration() time.Duration
	// Done is closed when the session ends, naturally or through Stop.
	Done() <-chan struct{}
}

var (
	// ErrOpenFailed is matched by every *OpenError.
	ErrOpenFailed = errors.New("playback: open failed")

	errNoSession = errors.New("resource returned no session")
)

// OpenError reports that the resource could not be prepared for a source.
type OpenError struct {
	Identity Identity
	Source   Source
	Err      error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("playback: open %q for message %s: %v", e.Source, e.Identity, e.Err)
}

func (e *OpenError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrOpenFailed) true for any *OpenError.
func (e *OpenError) Is(target error) bool { return target == ErrOpenFailed }
