// Package playback coordinates a single shared audio resource between many
// recyclable message cells.
//
// Every method of Coordinator must be called from the Bubble Tea event loop.
// Work that may block (opening a source, waiting for it to finish) is handed
// back as a tea.Cmd whose result re-enters the loop as a message tagged with
// the sequence number it was issued under.
package playback

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/tmc/voicecells/internal/helpers"
)

type subscriber struct {
	id int
	fn func(Notice)
}

// Coordinator is the single source of truth for what is playing.
type Coordinator struct {
	res Resource

	active  Identity
	source  Source
	state   State
	session Session // nil while the open is pending

	seq        uint64
	cancelOpen context.CancelFunc

	subs   []subscriber
	nextID int
}

// NewCoordinator returns a coordinator that owns res.
func NewCoordinator(res Resource) *Coordinator {
	return &Coordinator{res: res}
}

// Configure reports the state a cell bound to id should render now. It never
// touches the resource.
func (c *Coordinator) Configure(id Identity, src Source) State {
	if id == None || id != c.active {
		return Stopped
	}
	return c.state
}

// Toggle is the entry point for play/pause intent on a message. It returns
// the resulting state for id and, when a source must be opened, the command
// that opens it.
func (c *Coordinator) Toggle(id Identity, src Source) (State, tea.Cmd) {
	if id == None {
		return Stopped, nil
	}

	switch c.active {
	case None:
		return c.start(id, src)

	case id:
		if c.state == Playing {
			c.state = Paused
			if c.session != nil {
				c.session.Pause()
			}
		} else {
			c.state = Playing
			if c.session != nil {
				c.session.Play()
			}
		}
		log.Debug().Str("message", string(id)).Stringer("state", c.state).Msg("playback toggled")
		return c.state, nil

	default:
		prev := c.active
		c.drain()
		log.Debug().Str("message", string(prev)).Str("by", string(id)).Msg("playback displaced")
		c.notify(Notice{Identity: prev, Reason: Displaced})
		return c.start(id, src)
	}
}

// Stop ends whatever is active.
func (c *Coordinator) Stop() {
	if c.active == None {
		return
	}
	prev := c.active
	c.drain()
	c.notify(Notice{Identity: prev, Reason: Halted})
}

// Close stops playback and drops all subscribers.
func (c *Coordinator) Close() {
	c.Stop()
	c.subs = nil
}

// Update applies asynchronous results to the coordinator. Messages of other
// types are ignored.
func (c *Coordinator) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case OpenResultMsg:
		return c.handleOpenResult(msg)
	case FinishedMsg:
		c.handleFinished(msg)
	}
	return nil
}

// CurrentTime returns the playback position of id, or 0 when id is not the
// active message.
func (c *Coordinator) CurrentTime(id Identity) time.Duration {
	if id == None || id != c.active || c.session == nil {
		return 0
	}
	return c.session.CurrentTime()
}

// Duration returns the length of id's audio, or 0 when id is not the active
// message.
func (c *Coordinator) Duration(id Identity) time.Duration {
	if id == None || id != c.active || c.session == nil {
		return 0
	}
	return c.session.Duration()
}

// Snapshot returns the canonical (active, state) pair.
func (c *Coordinator) Snapshot() Snapshot {
	if c.active == None {
		return Snapshot{State: Stopped}
	}
	return Snapshot{Active: c.active, State: c.state}
}

// Active returns the active message, or None.
func (c *Coordinator) Active() Identity { return c.active }

// Subscribe registers fn for stop notices. Notices are delivered
// synchronously on the event loop.
func (c *Coordinator) Subscribe(fn func(Notice)) (unsubscribe func()) {
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Coordinator) start(id Identity, src Source) (State, tea.Cmd) {
	c.seq++
	seq := c.seq
	c.active = id
	c.source = src
	c.state = Playing
	c.session = nil

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelOpen = cancel
	res := c.res

	log.Debug().Str("message", string(id)).Str("source", string(src)).Uint64("seq", seq).Msg("opening source")
	return Playing, func() tea.Msg {
		sess, err := res.Open(ctx, src)
		return OpenResultMsg{Identity: id, Seq: seq, Session: sess, Err: err}
	}
}

// drain releases the active session, or abandons its pending open, and
// invalidates every message issued under the current sequence.
func (c *Coordinator) drain() {
	if c.cancelOpen != nil {
		c.cancelOpen()
		c.cancelOpen = nil
	}
	if c.session != nil {
		c.session.Stop()
		c.session = nil
	}
	c.seq++
	c.active = None
	c.source = ""
	c.state = Stopped
}

func (c *Coordinator) handleOpenResult(msg OpenResultMsg) tea.Cmd {
	if msg.Seq != c.seq || msg.Identity != c.active {
		if msg.Session != nil {
			msg.Session.Stop()
		}
		log.Debug().Str("message", string(msg.Identity)).Uint64("seq", msg.Seq).Uint64("current", c.seq).Msg("discarding stale open result")
		return nil
	}

	if msg.Err != nil {
		err := &OpenError{Identity: msg.Identity, Source: c.source, Err: msg.Err}
		c.drain()
		log.Error().Err(err).Msg("open failed")
		c.notify(Notice{Identity: msg.Identity, Reason: OpenFailed, Err: err})
		return nil
	}

	if msg.Session == nil {
		err := &OpenError{Identity: msg.Identity, Source: c.source, Err: errNoSession}
		c.drain()
		log.Error().Err(err).Msg("open failed")
		c.notify(Notice{Identity: msg.Identity, Reason: OpenFailed, Err: err})
		return nil
	}

	c.session = msg.Session
	if c.state == Playing {
		c.session.Play()
	}
	if helpers.IsAudioTraceEnabled() {
		log.Debug().Str("message", string(msg.Identity)).Dur("duration", c.session.Duration()).Msg("session ready")
	}

	sess, id, seq := c.session, msg.Identity, msg.Seq
	return func() tea.Msg {
		<-sess.Done()
		return FinishedMsg{Identity: id, Seq: seq}
	}
}

func (c *Coordinator) handleFinished(msg FinishedMsg) {
	if msg.Seq != c.seq || msg.Identity != c.active {
		return
	}
	id := c.active
	c.drain()
	log.Debug().Str("message", string(id)).Msg("playback finished")
	c.notify(Notice{Identity: id, Reason: Finished})
}

func (c *Coordinator) notify(n Notice) {
	subs := append([]subscriber(nil), c.subs...)
	for _, s := range subs {
		s.fn(n)
	}
}
