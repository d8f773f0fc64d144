package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Create or update the database tables and exit",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// bootstrap migrates
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			a.close()
			return nil
		},
	}
}
