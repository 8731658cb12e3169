package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feirante/feirante/internal/classify"
	"github.com/feirante/feirante/internal/cli"
	"github.com/feirante/feirante/internal/curation"
	"github.com/feirante/feirante/internal/tui"
)

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review",
		Short: "Interactively review products flagged during processing",
		Long: `Walk the review backlog in an interactive screen. Each product can be
approved as-is, renamed, recategorized, merged into a similar product,
or skipped. Renames and merges keep the old name reachable as a synonym.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			curator := curation.New(store, classify.New(store))
			reviewed, err := tui.RunReview(ctx, store, curator)
			if err != nil {
				return err
			}

			if reviewed == 0 {
				fmt.Println("Nothing reviewed.")
				return nil
			}
			fmt.Printf("%s Reviewed %d product(s)\n", cli.SuccessStyle.Render("✓"), reviewed)
			return nil
		},
	}
}
