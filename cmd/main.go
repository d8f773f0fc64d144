package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootOptions flags shared by every command
type rootOptions struct {
	ConfigDir string
	Verbose   bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "luckynumbers",
		Short: "LuckyNumbers draw server",
		Long: `LuckyNumbers draws random numbers once per interval, stores player guesses
and tells every player how their guess did.

Running without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "./config", "directory containing config.yaml")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newDrawCommand(opts))
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
