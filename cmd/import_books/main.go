package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"library-lms/config"
	"library-lms/library"
	"library-lms/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:           "import_books <catalog.yaml>",
		Short:         "Import authors, books, members and borrowings from a YAML catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], replace, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "clear all existing data before importing")
	return cmd
}

func run(ctx context.Context, path string, replace bool, out io.Writer) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logg := logger.New(logger.Options{
		ServiceName: "import_books",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	manager, err := library.NewLibraryManager(ctx, cfg, library.Options{Logger: logg})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer manager.Close()

	cat, err := library.LoadCatalogFile(path)
	if err != nil {
		return err
	}

	if replace {
		fmt.Fprintln(out, "Clearing existing data...")
		if err := manager.ClearAllData(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, "Importing %d author(s), %d book(s), %d member(s), %d borrowing(s) from %s...\n",
		len(cat.Authors), len(cat.Books), len(cat.Members), len(cat.Borrowings), path)

	res := manager.ImportCatalog(ctx, cat)
	for _, f := range res.Failures {
		fmt.Fprintf(out, "ERROR - %s %s: %v\n", f.Kind, truncateString(f.Name, 50), f.Err)
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "SUCCESS: %d author(s), %d book(s), %d member(s), %d borrowing(s)\n",
		res.Authors, res.Books, res.Members, res.Borrowings)
	fmt.Fprintf(out, "Errors: %d\n", len(res.Failures))

	if res.Books > 0 {
		if err := printBooks(ctx, manager, out); err != nil {
			return err
		}
	}
	return res.Err()
}

func printBooks(ctx context.Context, manager *library.LibraryManager, out io.Writer) error {
	fmt.Fprintln(out, "\nBooks in the catalog:")
	fmt.Fprintf(out, "%-13s %-50s %-30s %s\n", "ISBN", "Title", "Author", "Copies")
	fmt.Fprintln(out, strings.Repeat("-", 102))

	req := library.PageRequest{Size: library.MaxPageSize, Sort: []library.SortCriteria{{Field: "title", Direction: library.SortAsc}}}
	for {
		page, err := manager.SearchBooks(ctx, library.BookCriteria{}, req)
		if err != nil {
			return err
		}
		for _, b := range page.Items {
			fmt.Fprintf(out, "%-13s %-50s %-30s %d/%d\n",
				b.ISBN, truncateString(b.Title, 50), truncateString(b.AuthorName(), 30), b.AvailableCopies, b.TotalCopies)
		}
		if !page.HasNext() {
			return nil
		}
		req.Page++
	}
}

func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
