// Command voicecells is a terminal chat transcript with playable voice
// messages.
package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tmc/voicecells/internal/helpers"
)

const (
	defaultDBPath  = "voicecells.db"
	defaultLogFile = "voicecells-debug.log"
)

type config struct {
	dbPath       string
	pollInterval time.Duration
	sampleRate   int
	logFile      string
	debug        bool
}

var (
	cfg     config
	logFile *os.File
)

var rootCmd = &cobra.Command{
	Use:   "voicecells",
	Short: "Browse a chat transcript and play its voice messages",
	Long: `voicecells shows the messages stored in a local database as a scrolling
transcript. Voice messages play inline; starting one stops any other.`,
	Args:              cobra.NoArgs,
	PersistentPreRunE: setup,
	PersistentPostRun: func(*cobra.Command, []string) {
		if logFile != nil {
			logFile.Close()
		}
	},
	RunE: runTranscript,
}

func init() {
	// A missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.dbPath, "db", envOr("VOICECELLS_DB", defaultDBPath), "Message database path (env VOICECELLS_DB).")
	flags.StringVar(&cfg.logFile, "log-file", envOr("VOICECELLS_LOG_FILE", defaultLogFile), "Log file path; empty disables logging.")
	flags.BoolVar(&cfg.debug, "debug", false, "Enable debug logging.")

	rootCmd.Flags().DurationVar(&cfg.pollInterval, "poll-interval", 100*time.Millisecond, "How often playing cells refresh their progress.")
	rootCmd.Flags().IntVar(&cfg.sampleRate, "sample-rate", envInt("VOICECELLS_SAMPLE_RATE", 44100), "Speaker sample rate in Hz.")

	rootCmd.AddCommand(seedCmd, addCmd)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil && v > 0 {
		return v
	}
	return fallback
}

// setup directs log output to a file; the TUI owns the terminal.
func setup(cmd *cobra.Command, args []string) error {
	level := zerolog.InfoLevel
	if cfg.debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.logFile == "" {
		log.Logger = zerolog.Nop()
		return nil
	}
	f, err := os.OpenFile(cfg.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file %q: %w", cfg.logFile, err)
	}
	logFile = f
	log.Logger = zerolog.New(f).With().Timestamp().Caller().Logger()
	log.Info().Str("command", cmd.Name()).Str("db", cfg.dbPath).Msg("--- application start ---")
	if helpers.IsAudioTraceEnabled() {
		log.Info().Msg("detailed audio tracing enabled (VOICECELLS_AUDIO_TRACE=1)")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
