package audioplayer

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// ErrUnsupportedFormat is returned for sources whose extension has no decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Config holds configuration of the audio output device.
type Config struct {
	SampleRate beep.SampleRate
	// BufferSize is the speaker buffer length; larger is steadier but
	// makes pause and stop less immediate.
	BufferSize time.Duration
	// Quality is the resampling quality passed to beep.Resample.
	Quality int
}

// DefaultConfig provides standard audio configuration.
var DefaultConfig = Config{
	SampleRate: 44100,
	BufferSize: 100 * time.Millisecond,
	Quality:    4,
}

// decodeFile opens path and picks a decoder by extension. The returned file
// must be closed by the caller along with the streamer.
func decodeFile(path string) (*os.File, beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	var decode func(*os.File) (beep.StreamSeekCloser, beep.Format, error)
	switch ext {
	case ".mp3":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return mp3.Decode(f) }
	case ".wav":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(f) }
	case ".ogg", ".oga":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return vorbis.Decode(f) }
	case ".flac":
		decode = func(f *os.File) (beep.StreamSeekCloser, beep.Format, error) { return flac.Decode(f) }
	default:
		return nil, nil, beep.Format{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, beep.Format{}, err
	}
	streamer, format, err := decode(f)
	if err != nil {
		f.Close()
		return nil, nil, beep.Format{}, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return f, streamer, format, nil
}

// closeAll closes every closer and joins the errors.
func closeAll(closers ...io.Closer) error {
	var errs []error
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
