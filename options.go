package voicecells

import (
	"fmt"
	"time"

	"github.com/tmc/voicecells/settings"
)

// Option configures the list model.
type Option func(*Model) error

// WithPollInterval sets how often playing cells refresh their progress.
func WithPollInterval(d time.Duration) Option {
	return func(m *Model) error {
		if d <= 0 {
			return fmt.Errorf("poll interval must be positive, got %v", d)
		}
		m.pollInterval = d
		return nil
	}
}

// WithPoolSize fixes the number of recyclable cells instead of deriving it
// from the window height.
func WithPoolSize(n int) Option {
	return func(m *Model) error {
		if n < 1 {
			return fmt.Errorf("pool size must be at least 1, got %d", n)
		}
		m.poolSize = n
		return nil
	}
}

// WithTitle sets the header title.
func WithTitle(title string) Option {
	return func(m *Model) error {
		m.title = title
		return nil
	}
}

// WithSettings sets the values shown in the settings panel.
func WithSettings(s settings.Model) Option {
	return func(m *Model) error {
		m.settingsPanel = s
		return nil
	}
}
