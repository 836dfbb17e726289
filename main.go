package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aarchit22/Library-Management-System-CS253/internal/config"
	"github.com/aarchit22/Library-Management-System-CS253/internal/logging"
	"github.com/aarchit22/Library-Management-System-CS253/library"
)

var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "library",
	Short: "Library lending system",
	Long:  `Track books, users, loans, reservations and fines through role-specific menus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the interactive login menu",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd.Context())
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Add the default books and users if they are missing",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Seed = true
		mgr, err := openManager(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()
		fmt.Printf("Library has %d books and %d users.\n", len(mgr.GetAllBooks()), len(mgr.GetAllUsers()))
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [user-id]",
	Short: "Print the active issue records",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := openManager(cmd.Context())
		if err != nil {
			return err
		}
		defer mgr.Close()
		records := mgr.IssuedRecords()
		if len(args) == 1 {
			records = mgr.IssuedRecordsFor(args[0])
		}
		printIssuedRecords(records)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Store, "store", cfg.Store, "Storage backend: csv or sqlite")
	flags.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "Directory holding books.csv, users.csv and issued.csv")
	flags.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database file")
	flags.BoolVar(&cfg.AutoSave, "autosave", cfg.AutoSave, "Save after every change")
	flags.BoolVar(&cfg.ReconcileLoans, "reconcile-loans", cfg.ReconcileLoans, "Rebuild borrowed books from the issue records on startup")
	flags.BoolVar(&cfg.Seed, "seed", cfg.Seed, "Add default books and users when missing")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, seedCmd, reportCmd)
}

func openManager(ctx context.Context) (*library.LibraryManager, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	store, err := library.OpenStore(strings.ToLower(cfg.Store), cfg.DataDir, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	mgr, err := library.NewLibraryManager(ctx, store,
		library.WithLogger(logging.New(level)),
		library.WithAutoSave(cfg.AutoSave),
		library.WithReconcileLoans(cfg.ReconcileLoans),
		library.WithSeed(cfg.Seed),
	)
	if err != nil {
		store.Close()
		return nil, err
	}
	return mgr, nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
