package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"solar-system-ai/internal/celestial"
	"solar-system-ai/internal/chat"
)

var askPlanet string

var askCmd = &cobra.Command{
	Use:   "ask [message]",
	Short: "Send one message to a planet through the configured relay",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		relay, err := chat.NewRelay(cfg.Relay, logger)
		if err != nil {
			return err
		}
		return ask(cmd, relay, askPlanet, strings.Join(args, " "))
	},
}

func ask(cmd *cobra.Command, relay chat.Relay, planet, message string) error {
	body, ok := celestial.FindObjectByName(celestial.InitSolarSystemObjects(), planet)
	if !ok {
		return fmt.Errorf("%w: %s", celestial.ErrUnknownBody, planet)
	}

	panel := chat.NewPanel(relay, logger)
	panel.Open(body.Name)
	sendErr := panel.Send(cmd.Context(), message)
	if errors.Is(sendErr, chat.ErrEmptyMessage) {
		return sendErr
	}

	printTranscript(cmd.OutOrStdout(), panel.Current())
	if sendErr != nil {
		return errors.New(chat.FailureMessage)
	}
	return nil
}

func printTranscript(w io.Writer, conv *chat.Conversation) {
	for _, e := range conv.Transcript.Entries() {
		fmt.Fprintf(w, "%s: %s\n", e.Speaker, e.Text)
	}
}
