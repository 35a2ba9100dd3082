package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gopxl/beep/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tmc/voicecells"
	"github.com/tmc/voicecells/audioplayer"
	"github.com/tmc/voicecells/internal/helpers"
	"github.com/tmc/voicecells/playback"
	"github.com/tmc/voicecells/settings"
	"github.com/tmc/voicecells/store"
)

func runTranscript(cmd *cobra.Command, args []string) error {
	st, err := store.Open(cfg.dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	msgs, err := st.List(cmd.Context())
	if err != nil {
		return err
	}
	log.Info().Int("messages", len(msgs)).Msg("transcript loaded")

	audioCfg := audioplayer.DefaultConfig
	audioCfg.SampleRate = beep.SampleRate(cfg.sampleRate)
	res, err := audioplayer.NewBeepResource(audioCfg)
	if err != nil {
		return err
	}
	coord := playback.NewCoordinator(res)
	defer coord.Close()

	panel := settings.New()
	panel.DBPath = cfg.dbPath
	panel.SampleRate = cfg.sampleRate
	panel.AudioTrace = helpers.IsAudioTraceEnabled()

	m, err := voicecells.New(coord, msgs,
		voicecells.WithPollInterval(cfg.pollInterval),
		voicecells.WithSettings(panel),
	)
	if err != nil {
		return err
	}

	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run(); err != nil {
		return fmt.Errorf("running transcript: %w", err)
	}
	return nil
}
