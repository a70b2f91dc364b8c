package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/osa911/proxydesk/internal/app"
	"github.com/osa911/proxydesk/internal/config"
	"github.com/osa911/proxydesk/internal/logging"
	"github.com/osa911/proxydesk/internal/version"
)

var (
	console *app.App
	verbose bool
	asJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "proxydesk",
	Short: "proxydesk - manage nginx reverse proxy fragments",
	Long: `proxydesk manages one nginx server block per proxied service in the
conf.d directory, keeps an audit ledger of submissions, and tests and reloads
nginx after every change.

The CLI works on the same files as the web console. Settings come from the
same environment variables and .env files.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "version", "help", "completion":
			return nil
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		level := logging.LevelWarn
		if verbose {
			level = logging.LevelDebug
		}
		console = app.New(cfg, logging.New(os.Stderr, level))
		return nil
	},
}

// withSpinner shows progress on a terminal while fn runs.
func withSpinner(suffix string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 120*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	s.Stop()
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "proxydesk %s\n", version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reloadCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(backupCmd)

	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupListCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
