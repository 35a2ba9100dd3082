package audioplayer

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/rs/zerolog/log"

	"github.com/tmc/voicecells/internal/helpers"
	"github.com/tmc/voicecells/playback"
)

// BeepResource plays local audio files through the system speaker.
type BeepResource struct {
	config Config
}

var _ playback.Resource = (*BeepResource)(nil)

// NewBeepResource initialises the speaker. It should be created once per
// process.
func NewBeepResource(config Config) (*BeepResource, error) {
	if err := speaker.Init(config.SampleRate, config.SampleRate.N(config.BufferSize)); err != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", err)
	}
	log.Debug().Int("sample_rate", int(config.SampleRate)).Dur("buffer", config.BufferSize).Msg("speaker initialized")
	return &BeepResource{config: config}, nil
}

// Open decodes src, treated as a file path. The session starts paused.
func (r *BeepResource) Open(ctx context.Context, src playback.Source) (playback.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	file, streamer, format, err := decodeFile(string(src))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		closeAll(streamer, file)
		return nil, err
	}

	var out beep.Streamer = streamer
	if format.SampleRate != r.config.SampleRate {
		out = beep.Resample(r.config.Quality, format.SampleRate, r.config.SampleRate, streamer)
	}

	s := &beepSession{
		source:   src,
		file:     file,
		streamer: streamer,
		format:   format,
		ctrl:     &beep.Ctrl{Streamer: out, Paused: true},
		done:     make(chan struct{}),
	}
	if helpers.IsAudioTraceEnabled() {
		log.Debug().Str("source", string(src)).Dur("length", s.Duration()).Dur("took", time.Since(start)).Msg("source decoded")
	}
	return s, nil
}

// beepSession is one decoded source attached to the speaker mixer.
type beepSession struct {
	source   playback.Source
	file     *os.File
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl

	started  bool
	stopped  bool
	doneOnce sync.Once
	done     chan struct{}
}

func (s *beepSession) Play() {
	if s.stopped {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = false
	speaker.Unlock()
	if !s.started {
		s.started = true
		speaker.Play(beep.Seq(s.ctrl, beep.Callback(s.finish)))
	}
}

func (s *beepSession) Pause() {
	if s.stopped {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

func (s *beepSession) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	speaker.Lock()
	s.ctrl.Streamer = nil
	speaker.Unlock()
	if err := closeAll(s.streamer, s.file); err != nil {
		log.Warn().Err(err).Str("source", string(s.source)).Msg("closing session")
	}
	s.finish()
}

func (s *beepSession) CurrentTime() time.Duration {
	if s.stopped {
		return 0
	}
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

func (s *beepSession) Duration() time.Duration {
	return s.format.SampleRate.D(s.streamer.Len())
}

func (s *beepSession) Done() <-chan struct{} { return s.done }

// finish runs on the speaker goroutine when the source drains, and on the
// loop when the session is stopped.
func (s *beepSession) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}
