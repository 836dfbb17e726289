package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aarchit22/Library-Management-System-CS253/internal/config"
	"github.com/aarchit22/Library-Management-System-CS253/internal/logging"
	"github.com/aarchit22/Library-Management-System-CS253/library"
)

// bookRow is one line of the import file: title,author,publisher,year,isbn.
type bookRow struct {
	line      int
	title     string
	author    string
	publisher string
	year      int
	isbn      string
}

func readBookRows(r io.Reader) ([]bookRow, []error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var (
		rows []bookRow
		errs []error
		line int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if len(rec) < 5 {
			errs = append(errs, fmt.Errorf("line %d: want 5 fields, got %d", line, len(rec)))
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			// A header row fails here and is reported like any other bad row.
			errs = append(errs, fmt.Errorf("line %d: year %q is not a number", line, rec[3]))
			continue
		}
		rows = append(rows, bookRow{
			line:      line,
			title:     strings.TrimSpace(rec[0]),
			author:    strings.TrimSpace(rec[1]),
			publisher: strings.TrimSpace(rec[2]),
			year:      year,
			isbn:      strings.TrimSpace(rec[4]),
		})
	}
	return rows, errs
}

func main() {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "import_books <file.csv>",
		Short: "Add catalog records (title,author,publisher,year,isbn) to the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importBooks(cmd.Context(), cfg, args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&cfg.Store, "store", cfg.Store, "Storage backend: csv or sqlite")
	cmd.Flags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding the CSV collections")
	cmd.Flags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func importBooks(ctx context.Context, cfg *config.Config, path string) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	store, err := library.OpenStore(strings.ToLower(cfg.Store), cfg.DataDir, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	// Save once at the end rather than after every book.
	manager, err := library.NewLibraryManager(ctx, store,
		library.WithLogger(logging.New(level)),
		library.WithAutoSave(false),
	)
	if err != nil {
		store.Close()
		return err
	}
	defer manager.Close()

	rows, errs := readBookRows(f)
	for _, err := range errs {
		fmt.Printf("ERROR - %v\n", err)
	}

	successCount, duplicateCount := 0, 0
	errorCount := len(errs)
	for _, row := range rows {
		fmt.Printf("Importing: %s by %s... ", row.title, row.author)
		_, err := manager.AddBook(ctx, row.title, row.author, row.publisher, row.year, row.isbn)
		switch {
		case errors.Is(err, library.ErrDuplicateKey):
			fmt.Printf("SKIPPED - %v\n", err)
			duplicateCount++
		case err != nil:
			fmt.Printf("ERROR - line %d: %v\n", row.line, err)
			errorCount++
		default:
			fmt.Printf("SUCCESS (ISBN: %s)\n", row.isbn)
			successCount++
		}
	}

	if err := manager.Save(ctx); err != nil {
		return err
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Duplicates skipped: %d\n", duplicateCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		fmt.Printf("%-12s %-50s %-30s\n", "ISBN", "Title", "Author")
		fmt.Println(strings.Repeat("-", 94))
		for _, book := range manager.GetAllBooks() {
			fmt.Printf("%-12s %-50s %-30s\n", truncateString(book.ISBN, 12), truncateString(book.Title, 50), truncateString(book.Author, 30))
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
