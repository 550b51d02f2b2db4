package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"library-lms/server"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Execute runs the command tree against os.Args and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "library-lms",
		Short:         "Library management: books, members and borrowings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runShell,
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive menu (default)",
			Args:  cobra.NoArgs,
			RunE:  runShell,
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Serve health, metrics and read-only reports over HTTP",
			Args:  cobra.NoArgs,
			RunE:  runServe,
		},
		&cobra.Command{
			Use:       "migrate [up|down|status|version]",
			Short:     "Run schema migrations",
			Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"up", "down", "status", "version"},
			RunE:      runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Replace all data with the sample catalog",
			Args:  cobra.NoArgs,
			RunE:  runSeed,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Delete all library data",
			Args:  cobra.NoArgs,
			RunE:  runClear,
		},
		&cobra.Command{
			Use:       "report [overdue|borrowed|summary]",
			Short:     "Print a report",
			Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
			ValidArgs: []string{"overdue", "borrowed", "summary"},
			RunE:      runReport,
		},
	)
	return root
}

func runShell(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := NewShell(a.mgr, cmd.InOrStdin(), cmd.OutOrStdout())
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sh.readPassword = func() (string, error) {
			b, err := term.ReadPassword(int(f.Fd()))
			fmt.Fprintln(sh.out)
			return string(b), err
		}
	}
	return sh.Run(cmd.Context())
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := server.NewRouter(a.mgr, a.registry, a.log)
	return server.Run(cmd.Context(), a.cfg.Server, handler, a.log)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	command := "up"
	if len(args) == 1 {
		command = args[0]
	}
	if command == "version" {
		v, err := a.mgr.SchemaVersion(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
		return nil
	}
	if err := a.mgr.Migrate(cmd.Context(), command); err != nil {
		return err
	}
	a.log.Info(a.log.WithField(cmd.Context(), "command", command), "migrations done")
	return nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.mgr.GenerateSampleData(cmd.Context())
	if err != nil {
		return err
	}
	printImportResult(cmd.OutOrStdout(), res)
	return res.Err()
}

func runClear(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.mgr.ClearAllData(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "All data cleared.")
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer a.Close()

	sh := NewShell(a.mgr, cmd.InOrStdin(), cmd.OutOrStdout())
	return sh.writeReport(cmd.Context(), args[0])
}
