package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"channelcast/internal/playback"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var player string
	var playerArgs string

	cmd := &cobra.Command{
		Use:   "play <episode-id>",
		Short: "Play an episode with an external audio player",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := playback.NewRegistry()
			defer registry.Close()

			handle := playback.NewProcessHandle(player, strings.Fields(playerArgs)...)
			p := playback.NewPlayer(args[0], handle, registry, ctx.client(), ctx.logger())
			defer p.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Playing episode %s\n", args[0])
			return p.Play(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&player, "player", "ffplay", "Audio player executable")
	cmd.Flags().StringVar(&playerArgs, "player-args", "-nodisp -autoexit -loglevel error", "Arguments passed before the URL")
	return cmd
}
