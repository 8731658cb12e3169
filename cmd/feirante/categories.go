package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feirante/feirante/internal/cli"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage product categories",
	}

	cmd.AddCommand(categoriesListCmd())
	cmd.AddCommand(categoriesAddCmd())

	return cmd
}

func categoriesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			categories, err := store.GetCategories(ctx)
			if err != nil {
				return err
			}
			if len(categories) == 0 {
				fmt.Println("No categories yet. They are created as lists are processed.")
				return nil
			}

			fmt.Printf("%-5s %s\n", "ID", "NAME")
			for _, category := range categories {
				fmt.Printf("%-5d %s\n", category.ID, category.Name)
			}
			return nil
		},
	}
}

func categoriesAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Create a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			category, err := store.CreateCategory(ctx, args[0])
			if err != nil {
				return err
			}

			fmt.Printf("%s Category %q created (id %d)\n",
				cli.SuccessStyle.Render("✓"), category.Name, category.ID)
			return nil
		},
	}
}
