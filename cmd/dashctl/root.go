package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"channelcast/internal/apiclient"
	"channelcast/internal/logger"
)

const defaultAPI = "http://localhost:8080"

type commandContext struct {
	apiFlag   *string
	tokenFlag *string
	verbose   *bool
}

func (c *commandContext) client() *apiclient.Client {
	return apiclient.NewClient(strings.TrimSpace(*c.apiFlag), strings.TrimSpace(*c.tokenFlag))
}

func (c *commandContext) logger() *logger.Logger {
	if c.verbose == nil || !*c.verbose {
		return logger.NewNop()
	}
	log, err := logger.New("dev")
	if err != nil {
		return logger.NewNop()
	}
	return log
}

func newRootCommand() *cobra.Command {
	var apiFlag, tokenFlag string
	var verbose bool
	ctx := &commandContext{apiFlag: &apiFlag, tokenFlag: &tokenFlag, verbose: &verbose}

	rootCmd := &cobra.Command{
		Use:           "dashctl",
		Short:         "Channel dashboard CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&apiFlag, "api", envOr("CHANNELCAST_API", defaultAPI), "Dashboard API base URL")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", os.Getenv("CHANNELCAST_TOKEN"), "Bearer token for an authenticated session")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log polling and playback details")

	rootCmd.AddCommand(newChannelsCommand(ctx))
	rootCmd.AddCommand(newCreateCommand(ctx))
	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
