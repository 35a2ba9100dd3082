package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tmc/voicecells/internal/helpers"
	"github.com/tmc/voicecells/store"
)

// seedSampleRate keeps demo clips small; playback resamples them.
const seedSampleRate = 22050

var seedDir string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Write demo voice clips and insert a demo conversation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		msgs, err := seedConversation(cmd.Context(), st, seedDir, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %d messages to %s\n", len(msgs), cfg.dbPath)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedDir, "dir", "clips", "Directory for generated voice clips.")
}

type demoLine struct {
	sender string
	body   string
	freq   float64 // zero for text-only lines
	length time.Duration
}

var demoConversation = []demoLine{
	{sender: "Ana", body: "Morning! Did the build finish?"},
	{sender: "Ben", body: "Voice note, hands full", freq: 440, length: 3 * time.Second},
	{sender: "Ana", body: "Got it, thanks"},
	{sender: "Ana", body: "Here's the summary", freq: 523.25, length: 5 * time.Second},
	{sender: "Ben", body: "Listening now"},
	{sender: "Cleo", body: "Adding my notes", freq: 659.25, length: 2 * time.Second},
	{sender: "System", body: "Cleo joined the conversation"},
	{sender: "Ben", body: "Long one, sorry", freq: 392, length: 12 * time.Second},
	{sender: "Ana", body: "No worries"},
	{sender: "Cleo", body: "Quick reply", freq: 587.33, length: time.Second},
}

// seedConversation writes the demo clips into dir and stores the demo
// conversation with timestamps a minute apart ending at now.
func seedConversation(ctx context.Context, st *store.Store, dir string, now time.Time) ([]store.Message, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating clip directory: %w", err)
	}
	start := now.Add(-time.Duration(len(demoConversation)) * time.Minute)

	var added []store.Message
	for i, line := range demoConversation {
		msg := store.Message{
			Sender:    line.sender,
			Body:      line.body,
			CreatedAt: start.Add(time.Duration(i) * time.Minute),
		}
		if line.freq > 0 {
			path, err := filepath.Abs(filepath.Join(dir, fmt.Sprintf("demo-%02d.wav", i)))
			if err != nil {
				return added, err
			}
			if err := os.WriteFile(path, helpers.ToneWAV(line.freq, line.length, seedSampleRate), 0o644); err != nil {
				return added, fmt.Errorf("writing clip: %w", err)
			}
			msg.AudioPath = path
		}
		stored, err := st.Add(ctx, msg)
		if err != nil {
			return added, err
		}
		log.Debug().Str("id", stored.ID).Str("sender", stored.Sender).Bool("audio", stored.HasAudio()).Msg("seeded message")
		added = append(added, stored)
	}
	return added, nil
}
