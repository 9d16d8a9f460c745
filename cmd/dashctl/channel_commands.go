package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List your channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			channels, err := ctx.client().ListChannels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list channels: %w", err)
			}
			if asJSON {
				return writeJSON(cmd, channels)
			}
			if len(channels) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No channels")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTOPIC")
			for _, ch := range channels {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", ch.ID, ch.Name, ch.Topic)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func newCreateCommand(ctx *commandContext) *cobra.Command {
	var topic, newsURL string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := ctx.client().CreateChannel(cmd.Context(), args[0], topic, newsURL)
			if err != nil {
				return fmt.Errorf("create channel: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created channel %s (%s)\n", ch.Name, ch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "Channel topic")
	cmd.Flags().StringVar(&newsURL, "news-url", "", "News source URL")
	return cmd
}
