package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"LuckyNumbers/internal/draw"

	"github.com/spf13/cobra"
)

func newDrawCommand(opts *rootOptions) *cobra.Command {
	var numbers []int

	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Run one draw for the current bucket now",
		Long: `Run one draw cycle for the current bucket and notify its guesses.
Nothing happens when the bucket already has a draw.

Example:
  luckynumbers draw
  luckynumbers draw --numbers 1,2,3,4,5,6`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.close()

			var gen draw.Generator = draw.New()
			if len(numbers) > 0 {
				gen = draw.Fixed(numbers)
			}
			pub := a.publisher()
			defer pub.Close()
			engine := a.engine(gen, pub)

			result, err := engine.RunOnce(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if result == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "bucket already drawn")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), "draw", result)
		},
	}
	cmd.Flags().IntSliceVar(&numbers, "numbers", nil, "force the drawn numbers, comma separated")
	return cmd
}

// printJSON writes v indented, what names it in the error
func printJSON(w io.Writer, what string, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", what, err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
