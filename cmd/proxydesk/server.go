package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/osa911/proxydesk/internal/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nginx configuration and service status",
	RunE: func(cmd *cobra.Command, args []string) error {
		var state models.RunningState
		_ = withSpinner("Checking nginx...", func() error {
			state = console.Service.Status(cmd.Context())
			return nil
		})
		if asJSON {
			return printJSON(cmd.OutOrStdout(), state)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration valid: %t\n", state.ConfigValid)
		fmt.Fprintf(out, "Service running:     %t\n", state.ServiceRunning)
		fmt.Fprintf(out, "Worker processes:    %d\n", state.Process.Count)
		if state.Process.Memory != "" {
			fmt.Fprintf(out, "Memory:              %s\n", state.Process.Memory)
		}
		if state.ConfigMessage != "" {
			fmt.Fprintf(out, "\n%s\n", state.ConfigMessage)
		}
		if len(state.ProbeErrors) > 0 {
			probes := make([]string, 0, len(state.ProbeErrors))
			for p := range state.ProbeErrors {
				probes = append(probes, p)
			}
			sort.Strings(probes)
			fmt.Fprintln(out, "\nProbe errors:")
			for _, p := range probes {
				fmt.Fprintf(out, "  %s: %s\n", p, state.ProbeErrors[p])
			}
		}
		return nil
	},
}

var reloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Test the nginx configuration and reload it",
	RunE: func(cmd *cobra.Command, args []string) error {
		var diagnostic string
		err := withSpinner("Testing configuration and reloading nginx...", func() error {
			var err error
			diagnostic, err = console.Service.Reload(cmd.Context())
			return err
		})
		if err != nil {
			return describe(err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Nginx reloaded successfully")
		if verbose && diagnostic != "" {
			fmt.Fprintln(cmd.OutOrStdout(), diagnostic)
		}
		return nil
	},
}

var logLines int

var logsCmd = &cobra.Command{
	Use:       "logs <access|error>",
	Short:     "Print the tail of an nginx log",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"access", "error"},
	RunE: func(cmd *cobra.Command, args []string) error {
		tail, err := console.Service.Logs(cmd.Context(), args[0], logLines)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), tail)
		}
		if tail.Message != "" {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", tail.Message, tail.File)
			return nil
		}
		for _, line := range tail.Lines {
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logLines, "lines", "n", 100, "Number of lines (max 1000)")
}
