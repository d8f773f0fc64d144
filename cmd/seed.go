package main

import (
	"fmt"

	"LuckyNumbers/internal/draw"
	"LuckyNumbers/internal/messaging"

	"github.com/spf13/cobra"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill past buckets with random draws",
		Long: `Fill the buckets before the current one with random draws so a fresh
installation has history to show. Buckets that already have a draw are kept.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive, got %d", count)
			}
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			engine := a.engine(draw.New(), messaging.NewLogPublisher(a.logger))
			created, err := engine.Seed(cmd.Context(), count)
			if err != nil {
				return err
			}
			a.logger.WithField("created", created).Info("seeding done")
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 100, "number of past buckets to fill")
	return cmd
}
