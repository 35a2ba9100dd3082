package playback

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// MockSession implements Session for testing.
type MockSession struct {
	source  Source
	playing bool
	plays   int
	pauses  int
	stopped bool
	elapsed time.Duration
	total   time.Duration

	once sync.Once
	done chan struct{}
}

func newMockSession(src Source) *MockSession {
	return &MockSession{source: src, total: 30 * time.Second, done: make(chan struct{})}
}

func (s *MockSession) Play()  { s.playing = true; s.plays++ }
func (s *MockSession) Pause() { s.playing = false; s.pauses++ }
func (s *MockSession) Stop() {
	s.playing = false
	s.stopped = true
	s.finish()
}
func (s *MockSession) CurrentTime() time.Duration { return s.elapsed }
func (s *MockSession) Duration() time.Duration    { return s.total }
func (s *MockSession) Done() <-chan struct{}      { return s.done }

// finish simulates the decoder reaching the end of the source.
func (s *MockSession) finish() { s.once.Do(func() { close(s.done) }) }

// MockResource implements Resource for testing.
type MockResource struct {
	opened   []Source
	sessions []*MockSession
	failures map[Source]error
}

func NewMockResource() *MockResource {
	return &MockResource{failures: make(map[Source]error)}
}

func (r *MockResource) Open(ctx context.Context, src Source) (Session, error) {
	r.opened = append(r.opened, src)
	if err := r.failures[src]; err != nil {
		return nil, err
	}
	s := newMockSession(src)
	r.sessions = append(r.sessions, s)
	return s, nil
}

func (r *MockResource) last() *MockSession {
	if len(r.sessions) == 0 {
		return nil
	}
	return r.sessions[len(r.sessions)-1]
}

// run executes cmd synchronously and feeds its message back into c, the
// way the Bubble Tea loop would. It returns the follow-up command.
func run(t *testing.T, c *Coordinator, cmd tea.Cmd) tea.Cmd {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command, got nil")
	}
	return c.Update(cmd())
}

type noticeLog struct{ notices []Notice }

func (l *noticeLog) record(n Notice) { l.notices = append(l.notices, n) }

func (l *noticeLog) last() (Notice, bool) {
	if len(l.notices) == 0 {
		return Notice{}, false
	}
	return l.notices[len(l.notices)-1], true
}

func TestConfigureIsIdempotent(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)

	for i := 0; i < 3; i++ {
		if got := c.Configure("msg1", "a.wav"); got != Stopped {
			t.Fatalf("Configure() = %v, want stopped", got)
		}
	}
	if len(res.opened) != 0 {
		t.Errorf("Configure() opened %d sources, want 0", len(res.opened))
	}

	_, cmd := c.Toggle("msg1", "a.wav")
	run(t, c, cmd)
	before := c.Snapshot()
	for i := 0; i < 3; i++ {
		if got := c.Configure("msg1", "a.wav"); got != Playing {
			t.Fatalf("Configure() on active = %v, want playing", got)
		}
		c.Configure("msg2", "b.wav")
	}
	if after := c.Snapshot(); after != before {
		t.Errorf("Snapshot changed from %+v to %+v", before, after)
	}
	if len(res.opened) != 1 {
		t.Errorf("opened %d sources, want 1", len(res.opened))
	}
}

func TestScenario(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)
	var notices noticeLog
	c.Subscribe(notices.record)

	if got := c.Configure("msg1", "urlA"); got != Stopped {
		t.Fatalf("Configure(msg1) = %v, want stopped", got)
	}

	state, cmd := c.Toggle("msg1", "urlA")
	if state != Playing {
		t.Fatalf("Toggle(msg1) = %v, want playing", state)
	}
	finishA := run(t, c, cmd)
	if finishA == nil {
		t.Fatal("expected a finish watcher after a successful open")
	}
	sessA := res.last()
	if sessA.source != "urlA" || !sessA.playing {
		t.Fatalf("session = %+v, want urlA playing", sessA)
	}

	if state, _ = c.Toggle("msg1", "urlA"); state != Paused {
		t.Fatalf("second Toggle(msg1) = %v, want paused", state)
	}
	if sessA.playing {
		t.Error("session still playing after pause")
	}

	state, cmd = c.Toggle("msg2", "urlB")
	if state != Playing {
		t.Fatalf("Toggle(msg2) = %v, want playing", state)
	}
	if n, _ := notices.last(); n.Identity != "msg1" || n.Reason != Displaced {
		t.Errorf("notice = %+v, want msg1 displaced", n)
	}
	if got := c.Configure("msg1", "urlA"); got != Stopped {
		t.Errorf("Configure(msg1) after displacement = %v, want stopped", got)
	}
	if !sessA.stopped {
		t.Error("displaced session was not stopped")
	}

	finishB := run(t, c, cmd)
	sessB := res.last()
	if sessB.source != "urlB" || !sessB.playing {
		t.Fatalf("session = %+v, want urlB playing", sessB)
	}

	// The watcher of the drained session fires late and must be ignored.
	c.Update(finishA())
	if snap := c.Snapshot(); snap.Active != "msg2" || snap.State != Playing {
		t.Fatalf("Snapshot after stale finish = %+v, want msg2 playing", snap)
	}

	sessB.finish()
	c.Update(finishB())
	if snap := c.Snapshot(); snap.Active != None || snap.State != Stopped {
		t.Errorf("Snapshot after finish = %+v, want none stopped", snap)
	}
	if n, _ := notices.last(); n.Identity != "msg2" || n.Reason != Finished {
		t.Errorf("notice = %+v, want msg2 finished", n)
	}
	if got := c.Configure("msg2", "urlB"); got != Stopped {
		t.Errorf("Configure(msg2) after finish = %v, want stopped", got)
	}
}

func TestResumeDoesNotReopen(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)

	_, cmd := c.Toggle("a", "a.wav")
	run(t, c, cmd)

	wantStates := []State{Paused, Playing, Paused, Playing}
	for i, want := range wantStates {
		state, cmd := c.Toggle("a", "a.wav")
		if state != want {
			t.Fatalf("toggle %d = %v, want %v", i, state, want)
		}
		if cmd != nil {
			t.Fatalf("toggle %d returned a command; re-tap must not reopen", i)
		}
	}
	if len(res.opened) != 1 {
		t.Errorf("opened %d times, want 1", len(res.opened))
	}
	s := res.last()
	if s.plays != 3 || s.pauses != 2 {
		t.Errorf("plays=%d pauses=%d, want 3 and 2", s.plays, s.pauses)
	}
}

func TestOpenFailure(t *testing.T) {
	res := NewMockResource()
	openErr := errors.New("no such file")
	res.failures["missing.mp3"] = openErr
	c := NewCoordinator(res)
	var notices noticeLog
	c.Subscribe(notices.record)

	state, cmd := c.Toggle("a", "missing.mp3")
	if state != Playing {
		t.Fatalf("Toggle() = %v, want optimistic playing", state)
	}
	if next := run(t, c, cmd); next != nil {
		t.Error("failed open should not start a finish watcher")
	}

	if snap := c.Snapshot(); snap.Active != None || snap.State != Stopped {
		t.Errorf("Snapshot = %+v, want none stopped", snap)
	}
	if len(notices.notices) != 1 {
		t.Fatalf("got %d notices, want exactly 1", len(notices.notices))
	}
	n := notices.notices[0]
	if n.Identity != "a" || n.Reason != OpenFailed {
		t.Errorf("notice = %+v, want a open failed", n)
	}
	if !errors.Is(n.Err, ErrOpenFailed) || !errors.Is(n.Err, openErr) {
		t.Errorf("notice error %v should match ErrOpenFailed and the cause", n.Err)
	}
	var oe *OpenError
	if !errors.As(n.Err, &oe) || oe.Source != "missing.mp3" {
		t.Errorf("notice error = %#v, want *OpenError for missing.mp3", n.Err)
	}

	// A later tap retries from scratch.
	delete(res.failures, "missing.mp3")
	_, cmd = c.Toggle("a", "missing.mp3")
	run(t, c, cmd)
	if snap := c.Snapshot(); snap.State != Playing {
		t.Errorf("retry Snapshot = %+v, want playing", snap)
	}
}

func TestOpenWithoutSession(t *testing.T) {
	c := NewCoordinator(NewMockResource())
	var notices noticeLog
	c.Subscribe(notices.record)

	_, _ = c.Toggle("a", "clip.wav")
	if next := c.Update(OpenResultMsg{Identity: "a", Seq: c.seq}); next != nil {
		t.Error("an open without a session should not start a finish watcher")
	}

	if snap := c.Snapshot(); snap.Active != None {
		t.Errorf("Snapshot = %+v, want none", snap)
	}
	n, ok := notices.last()
	if !ok || n.Reason != OpenFailed {
		t.Fatalf("notice = %+v, want open failed", n)
	}
	var oe *OpenError
	if !errors.As(n.Err, &oe) || oe.Source != "clip.wav" || oe.Identity != "a" {
		t.Errorf("notice error = %#v, want *OpenError for a and clip.wav", n.Err)
	}
	if !errors.Is(n.Err, errNoSession) {
		t.Errorf("notice error %v should wrap errNoSession", n.Err)
	}
}

func TestStaleOpenResultIsDiscarded(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)

	_, cmdA := c.Toggle("a", "a.wav")
	_, cmdB := c.Toggle("b", "b.wav")

	// B lands first, then A's late open arrives.
	run(t, c, cmdB)
	sessB := res.last()
	if next := c.Update(cmdA()); next != nil {
		t.Error("stale open result should not produce a command")
	}
	sessA := res.last()
	if sessA == sessB {
		t.Fatal("expected a second session for the late open")
	}
	if !sessA.stopped || sessA.plays != 0 {
		t.Errorf("late session plays=%d stopped=%t, want 0 and true", sessA.plays, sessA.stopped)
	}
	if !sessB.playing || sessB.stopped {
		t.Error("current session was disturbed by the stale result")
	}
	if snap := c.Snapshot(); snap.Active != "b" || snap.State != Playing {
		t.Errorf("Snapshot = %+v, want b playing", snap)
	}
}

func TestPauseWhileOpenPending(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)

	_, cmd := c.Toggle("a", "a.wav")
	if state, _ := c.Toggle("a", "a.wav"); state != Paused {
		t.Fatalf("Toggle() while pending = %v, want paused", state)
	}
	run(t, c, cmd)
	if s := res.last(); s.playing || s.plays != 0 {
		t.Error("session started although the message was paused before it opened")
	}
	if state, _ := c.Toggle("a", "a.wav"); state != Playing {
		t.Fatalf("resume = %v, want playing", state)
	}
	if !res.last().playing {
		t.Error("session not playing after resume")
	}
}

func TestQueriesOnInactiveReturnZero(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)

	if c.CurrentTime("a") != 0 || c.Duration("a") != 0 {
		t.Error("queries with nothing active should return 0")
	}

	_, cmd := c.Toggle("a", "a.wav")
	if c.Duration("a") != 0 {
		t.Error("Duration() before the open lands should return 0")
	}
	run(t, c, cmd)
	res.last().elapsed = 7 * time.Second

	if got := c.CurrentTime("a"); got != 7*time.Second {
		t.Errorf("CurrentTime(a) = %v, want 7s", got)
	}
	if got := c.Duration("a"); got != 30*time.Second {
		t.Errorf("Duration(a) = %v, want 30s", got)
	}
	if c.CurrentTime("b") != 0 || c.Duration("b") != 0 {
		t.Error("queries for a non-active message should return 0")
	}
	if c.CurrentTime(None) != 0 {
		t.Error("queries for None should return 0")
	}
}

func TestToggleNone(t *testing.T) {
	c := NewCoordinator(NewMockResource())
	state, cmd := c.Toggle(None, "x.wav")
	if state != Stopped || cmd != nil {
		t.Errorf("Toggle(None) = %v, %v; want stopped, nil", state, cmd)
	}
}

func TestStopAndClose(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)
	var notices noticeLog
	unsubscribe := c.Subscribe(notices.record)

	c.Stop() // nothing active
	if len(notices.notices) != 0 {
		t.Fatal("Stop() with nothing active should not notify")
	}

	_, cmd := c.Toggle("a", "a.wav")
	run(t, c, cmd)
	c.Stop()
	if n, _ := notices.last(); n.Identity != "a" || n.Reason != Halted {
		t.Errorf("notice = %+v, want a halted", n)
	}
	if !res.last().stopped {
		t.Error("session not stopped")
	}

	unsubscribe()
	_, cmd = c.Toggle("b", "b.wav")
	run(t, c, cmd)
	c.Close()
	if len(notices.notices) != 1 {
		t.Errorf("unsubscribed observer received %d notices, want 1", len(notices.notices))
	}
	if c.Active() != None {
		t.Error("Close() left an active message")
	}
}

func TestAtMostOneActive(t *testing.T) {
	res := NewMockResource()
	c := NewCoordinator(res)
	ids := []Identity{"a", "b", "c", "d"}

	// Track what each identity was last told, the way a bound cell would.
	shown := make(map[Identity]State)
	c.Subscribe(func(n Notice) { shown[n.Identity] = Stopped })

	rng := rand.New(rand.NewSource(1))
	var pending []tea.Cmd
	for step := 0; step < 2000; step++ {
		switch op := rng.Intn(10); {
		case op < 6:
			id := ids[rng.Intn(len(ids))]
			state, cmd := c.Toggle(id, Source(id)+".wav")
			shown[id] = state
			if cmd != nil {
				pending = append(pending, cmd)
			}
		case op < 8 && len(pending) > 0:
			i := rng.Intn(len(pending))
			cmd := pending[i]
			pending = append(pending[:i], pending[i+1:]...)
			if next := c.Update(cmd()); next != nil && rng.Intn(2) == 0 {
				if s := res.last(); s != nil {
					s.finish()
				}
				pending = append(pending, next)
			}
		default:
			id := ids[rng.Intn(len(ids))]
			c.Configure(id, Source(id)+".wav")
		}

		active := 0
		for _, id := range ids {
			if c.Configure(id, "") != Stopped {
				active++
			}
		}
		if active > 1 {
			t.Fatalf("step %d: %d identities active", step, active)
		}

		shownActive := 0
		for _, st := range shown {
			if st != Stopped {
				shownActive++
			}
		}
		if shownActive > 1 {
			t.Fatalf("step %d: %d identities displayed as active: %v", step, shownActive, shown)
		}

		live := 0
		for _, s := range res.sessions {
			if s.playing {
				live++
			}
		}
		if live > 1 {
			t.Fatalf("step %d: %d sessions producing output", step, live)
		}
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{Stopped: "stopped", Playing: "playing", Paused: "paused"} {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}
