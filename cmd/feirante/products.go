package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feirante/feirante/internal/classify"
	"github.com/feirante/feirante/internal/cli"
	"github.com/feirante/feirante/internal/curation"
)

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Inspect and curate the product catalog",
	}

	cmd.AddCommand(productsPendingCmd())
	cmd.AddCommand(productsApproveCmd())
	cmd.AddCommand(productsMergeCmd())

	return cmd
}

func productsPendingCmd() *cobra.Command {
	var (
		page     int
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List products awaiting name or category review",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			curator := curation.New(store, classify.New(store))
			items, total, err := curator.ListPendingReview(ctx, page, pageSize)
			if err != nil {
				return err
			}
			if total == 0 {
				fmt.Println(cli.SuccessStyle.Render("✓") + " Nothing to review.")
				return nil
			}

			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Pending review (%d total)", total)))
			for _, item := range items {
				flags := ""
				if item.Product.NeedsNameReview {
					flags += " [name]"
				}
				if item.Product.NeedsCategoryReview {
					flags += " [category]"
				}
				fmt.Printf("%s %s%s\n", item.Product.ID,
					cli.BoldStyle.Render(item.Product.Name),
					cli.WarningStyle.Render(flags))
				for _, suggestion := range item.Suggestions {
					fmt.Printf("    %s similar: %s (%d%%)\n",
						cli.SubtleStyle.Render("→"), suggestion.Product.Name, suggestion.Score)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "products per page")

	return cmd
}

func productsApproveCmd() *cobra.Command {
	var (
		newName    string
		categoryID int
	)

	cmd := &cobra.Command{
		Use:   "approve <product-id>",
		Short: "Approve a provisional product, optionally fixing its name or category",
		Long: `Approve a product flagged for review. Passing --name records the old name
as a synonym before renaming; passing --category teaches the classifier
rules from the product's name tokens.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			curator := curation.New(store, classify.New(store))
			corrections := curation.Corrections{
				NewName:       newName,
				NewCategoryID: categoryID,
			}
			if err := curator.ApproveWithCorrections(ctx, args[0], corrections); err != nil {
				return err
			}

			fmt.Printf("%s Product %s approved\n", cli.SuccessStyle.Render("✓"), args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&newName, "name", "", "corrected product name")
	cmd.Flags().IntVar(&categoryID, "category", 0, "corrected category ID")

	return cmd
}

func productsMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Merge a duplicate product into its canonical counterpart",
		Long: `Fold the source product into the target: the source's name becomes a
synonym of the target, its list items and price history move over, and
the source is deleted.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			curator := curation.New(store, classify.New(store))
			if err := curator.MergeProducts(ctx, args[0], args[1]); err != nil {
				return err
			}

			fmt.Printf("%s Merged %s into %s\n", cli.SuccessStyle.Render("✓"), args[0], args[1])
			return nil
		},
	}
}
