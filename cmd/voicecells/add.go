package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tmc/voicecells/store"
)

var (
	addSender string
	addText   string
	addAudio  string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a message to the transcript",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := store.Open(cfg.dbPath)
		if err != nil {
			return err
		}
		defer st.Close()

		msg, err := addMessage(cmd.Context(), st, addSender, addText, addAudio)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg.ID)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addSender, "sender", "", "Message sender.")
	addCmd.Flags().StringVar(&addText, "text", "", "Message text.")
	addCmd.Flags().StringVar(&addAudio, "audio", "", "Path to a voice clip (mp3, wav, ogg or flac).")
	_ = addCmd.MarkFlagRequired("sender")
}

func addMessage(ctx context.Context, st *store.Store, sender, text, audio string) (store.Message, error) {
	if text == "" && audio == "" {
		return store.Message{}, errors.New("a message needs --text or --audio")
	}
	if audio != "" {
		abs, err := filepath.Abs(audio)
		if err != nil {
			return store.Message{}, err
		}
		if _, err := os.Stat(abs); err != nil {
			return store.Message{}, fmt.Errorf("audio clip: %w", err)
		}
		audio = abs
	}
	return st.Add(ctx, store.Message{Sender: sender, Body: text, AudioPath: audio})
}
