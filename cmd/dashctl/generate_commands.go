package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"channelcast/internal/poller"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var interval = poller.DefaultInterval

	cmd := &cobra.Command{
		Use:   "generate <channel-id>",
		Short: "Start generating an episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			ack, err := client.Generate(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job %s started, episode %s (%s)\n", ack.JobID, ack.EpisodeID, ack.Status)
			if !wait {
				return nil
			}
			if ack.EpisodeID == "" {
				return errors.New("worker did not return an episode id to follow")
			}

			p := poller.New(client,
				poller.WithInterval(interval),
				poller.WithLogger(ctx.logger()),
				poller.OnReady(func(r poller.Ready) {
					fmt.Fprintf(out, "Episode %s is ready: %s\n", r.EpisodeID, r.AudioKey)
				}),
			)
			defer p.Close()

			p.Start(cmd.Context(), poller.Job{JobID: ack.JobID, EpisodeID: ack.EpisodeID})
			snap, err := p.Wait(cmd.Context())
			if err != nil {
				return err
			}
			switch snap.State {
			case poller.StateReady:
				return nil
			case poller.StateFailed:
				return fmt.Errorf("episode %s failed: %s", ack.EpisodeID, snap.Err)
			case poller.StateError:
				return fmt.Errorf("status check failed: %s", snap.Err)
			default:
				return fmt.Errorf("polling stopped in state %s", snap.State)
			}
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait until the episode is ready or failed")
	cmd.Flags().DurationVar(&interval, "interval", poller.DefaultInterval, "Delay between status checks")
	return cmd
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <episode-id>",
		Short: "Show an episode's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().EpisodeStatus(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("status: %w", err)
			}
			return writeJSON(cmd, status)
		},
	}
}
