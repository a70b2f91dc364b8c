package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osa911/proxydesk/internal/models"
)

const triggerCLI = "cli"

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and list configuration snapshots",
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the nginx configuration and the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		var artifact models.BackupArtifact
		err := withSpinner("Creating backup...", func() error {
			var err error
			artifact, err = console.Service.CreateBackup(cmd.Context(), triggerCLI)
			return err
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), artifact)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (%d bytes)\n", artifact.Path, artifact.Size)
		return nil
	},
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		artifacts, err := console.Service.ListBackups(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), artifacts)
		}
		if len(artifacts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No backups")
			return nil
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "NAME\tSIZE\tCREATED")
		for _, a := range artifacts {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", a.Name, a.Size, a.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		return tw.Flush()
	},
}
