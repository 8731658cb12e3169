package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/feirante/feirante/internal/cli"
	"github.com/feirante/feirante/internal/engine"
	"github.com/feirante/feirante/internal/fetcher"
	"github.com/feirante/feirante/internal/model"
	"github.com/feirante/feirante/internal/service"
)

func listsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lists",
		Short: "Manage shopping lists",
	}

	cmd.AddCommand(listsAddCmd())
	cmd.AddCommand(listsImportCmd())
	cmd.AddCommand(listsProcessCmd())
	cmd.AddCommand(listsShowCmd())
	cmd.AddCommand(listsListCmd())

	return cmd
}

func listsAddCmd() *cobra.Command {
	var (
		name     string
		fromFile string
		process  bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Submit a free-form shopping list",
		Long: `Submit shopping list text for processing. Reads from --file when given,
otherwise from stdin (end with Ctrl-D).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			text, err := readListText(fromFile)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("list text is empty")
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := engine.SubmitList(ctx, store, name, text)
			if err != nil {
				return err
			}

			fmt.Printf("%s List %s submitted (%s)\n",
				cli.SuccessStyle.Render("✓"), list.ID, list.Name)

			if process {
				return processList(ctx, store, list.ID, false)
			}

			fmt.Printf("Run %s to process it.\n",
				cli.BoldStyle.Render("feirante lists process "+list.ID))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Lista de compras", "name for the list")
	cmd.Flags().StringVar(&fromFile, "file", "", "read list text from a file instead of stdin")
	cmd.Flags().BoolVar(&process, "process", false, "process the list immediately after submitting")

	return cmd
}

func listsImportCmd() *cobra.Command {
	var (
		url      string
		fromFile string
		process  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import an invoice as a shopping list",
		Long: `Import a fiscal receipt, either by fetching its public URL (--url) or by
reading already-saved receipt text (--file).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if (url == "") == (fromFile == "") {
				return fmt.Errorf("exactly one of --url or --file is required")
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			var list *model.ShoppingList
			if url != "" {
				list, err = engine.ImportInvoice(ctx, store, fetcher.New(), url)
			} else {
				var body []byte
				body, err = os.ReadFile(fromFile)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", fromFile, err)
				}
				var invoice *service.FetchedInvoice
				invoice, err = fetcher.ExtractReceipt(string(body))
				if err != nil {
					return err
				}
				list, err = engine.StoreInvoice(ctx, store, invoice)
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s Invoice imported as list %s (%s)\n",
				cli.SuccessStyle.Render("✓"), list.ID, list.Name)

			if process {
				return processList(ctx, store, list.ID, false)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "public receipt URL to fetch")
	cmd.Flags().StringVar(&fromFile, "file", "", "file with saved receipt text")
	cmd.Flags().BoolVar(&process, "process", false, "process the list immediately after importing")

	return cmd
}

func listsProcessCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "process <list-id>",
		Short: "Run a pending list through the resolution pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			return processList(ctx, store, args[0], force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "reprocess a completed list (items are duplicated)")

	return cmd
}

// processList guards against accidental reprocessing, then runs the pipeline
// with a progress bar attached.
func processList(ctx context.Context, store service.Storage, listID string, force bool) error {
	list, err := store.GetListByID(ctx, listID)
	if err != nil {
		return err
	}
	if list == nil {
		return fmt.Errorf("list %s not found", listID)
	}
	if list.Status == model.ListStatusCompleted && !force {
		return fmt.Errorf("list %s is already completed; use --force to reprocess (items will be duplicated)", listID)
	}

	processor := newProcessor(store)

	var bar *progressbar.ProgressBar
	processor.SetProgress(func(done, total int) {
		if bar == nil {
			bar = newProcessBar(total)
		}
		_ = bar.Set(done)
	})

	if err := processor.ProcessList(ctx, listID); err != nil {
		return err
	}

	fmt.Printf("%s List %s processed\n", cli.SuccessStyle.Render("✓"), listID)

	if pending, err := store.CountProductsNeedingReview(ctx); err == nil && pending > 0 {
		fmt.Printf("%s %d product(s) awaiting review. Run: %s\n",
			cli.WarningStyle.Render("!"), pending, cli.BoldStyle.Render("feirante review"))
	}

	return nil
}

func listsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <list-id>",
		Short: "Show a list and its resolved items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			list, err := store.GetListByID(ctx, args[0])
			if err != nil {
				return err
			}
			if list == nil {
				return fmt.Errorf("list %s not found", args[0])
			}

			fmt.Println(cli.TitleStyle.Render(list.Name))
			fmt.Printf("Status:    %s\n", cli.StatusStyle(string(list.Status)).Render(string(list.Status)))
			fmt.Printf("Source:    %s\n", list.Source)
			fmt.Printf("Created:   %s\n", list.CreatedAt.Format("2006-01-02 15:04"))
			fmt.Printf("Processed: %s\n", formatTime(list.ProcessedAt))
			if list.ErrorMessage != "" {
				fmt.Printf("Error:     %s\n", cli.ErrorStyle.Render(list.ErrorMessage))
			}

			items, err := store.GetListItems(ctx, list.ID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("\nNo items yet.")
				return nil
			}

			fmt.Printf("\n%-40s %8s %-10s %10s %10s\n", "PRODUCT", "QTY", "UNIT", "PRICE", "TOTAL")
			var grandTotal float64
			for _, item := range items {
				product, err := store.GetProductByID(ctx, item.ProductID)
				if err != nil {
					return err
				}
				name := item.OriginalText
				if product != nil {
					name = product.Name
				}
				fmt.Printf("%-40s %8.3f %-10s %10s %10s\n",
					truncate(name, 40), item.Quantity, item.Unit,
					formatPrice(item.UnitPrice), formatPrice(item.Total))
				if item.Total != nil {
					grandTotal += *item.Total
				}
			}
			fmt.Printf("\n%s R$ %.2f\n", cli.BoldStyle.Render("Total:"), grandTotal)

			return nil
		},
	}
}

func listsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent shopping lists",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			lists, err := store.GetLists(ctx, limit, 0)
			if err != nil {
				return err
			}
			if len(lists) == 0 {
				fmt.Println("No lists yet. Submit one with: feirante lists add")
				return nil
			}

			fmt.Printf("%-36s %-30s %-10s %-8s %s\n", "ID", "NAME", "STATUS", "SOURCE", "CREATED")
			for _, list := range lists {
				fmt.Printf("%-36s %-30s %-10s %-8s %s\n",
					list.ID, truncate(list.Name, 30),
					cli.StatusStyle(string(list.Status)).Render(string(list.Status)),
					list.Source, list.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of lists to show")

	return cmd
}

func readListText(fromFile string) (string, error) {
	if fromFile != "" {
		body, err := os.ReadFile(fromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", fromFile, err)
		}
		return string(body), nil
	}

	fmt.Fprintln(os.Stderr, "Enter list text, one item per line (Ctrl-D to finish):")
	body, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(body), nil
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func newProcessBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Processing items...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}
