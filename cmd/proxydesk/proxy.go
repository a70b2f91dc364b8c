package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/osa911/proxydesk/internal/models"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List proxy fragments",
	RunE: func(cmd *cobra.Command, args []string) error {
		fragments, err := console.Service.List(cmd.Context())
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), fragments)
		}

		if len(fragments) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No proxies configured")
			return nil
		}
		tw := newTable(cmd.OutOrStdout())
		fmt.Fprintln(tw, "FILE\tSERVER NAME\tBACKEND\tPATH\tSSL\tMODIFIED")
		for _, f := range fragments {
			path := f.URLPath
			if path == "" {
				path = "/"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
				f.Filename, f.ServerName, f.Backend, path, f.SSL, f.ModifiedAt.Format("2006-01-02 15:04"))
		}
		return tw.Flush()
	},
}

var addDef models.ProxyDefinition

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a proxy, test the configuration and reload nginx",
	Long: `Add a proxy fragment for a backend service. The submission is recorded in
the ledger first. If nginx rejects the new configuration the fragment is
removed again and the nginx diagnostic is printed.

Example:
  proxydesk add --name "Billing API" --server-name billing.corp.local --ip 10.0.0.12 --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var result models.AddResult
		err := withSpinner("Testing configuration and reloading nginx...", func() error {
			var err error
			result, err = console.Service.Add(cmd.Context(), addDef)
			return err
		})
		if err != nil {
			return describe(err)
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", result.Filename)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a proxy fragment and reload nginx",
	Long: `Delete a proxy fragment by file name, as shown by "proxydesk list". A copy of
the fragment is kept next to it with a .backup suffix.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var result models.DeleteResult
		err := withSpinner("Removing fragment and reloading nginx...", func() error {
			var err error
			result, err = console.Service.Delete(cmd.Context(), args[0])
			return err
		})
		if err != nil {
			return describe(err)
		}
		if asJSON {
			return printJSON(cmd.OutOrStdout(), result)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (backup %s)\n", result.Filename, result.Backup)
		return nil
	},
}

// describe expands errors whose useful part is nginx's own output.
func describe(err error) error {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return fmt.Errorf("nginx rejected the configuration:\n%s", validationErr.Diagnostic)
	}
	var processErr *models.ProcessError
	if errors.As(err, &processErr) && processErr.Output != "" {
		return fmt.Errorf("%w\n%s", err, processErr.Output)
	}
	return err
}

func init() {
	f := addCmd.Flags()
	f.StringVar(&addDef.Name, "name", "", "Service name, also used for the fragment file name (required)")
	f.StringVar(&addDef.Hostname, "server-name", "", "DNS name nginx answers for (required)")
	f.StringVar(&addDef.BackendAddress, "ip", "", "Backend IPv4 address (required)")
	f.IntVar(&addDef.BackendPort, "port", 0, "Backend port (required)")
	f.StringVar(&addDef.URLPath, "path", "", "Location prefix, defaults to /")
	f.StringVar(&addDef.Description, "description", "", "Free-text description")
	f.BoolVar(&addDef.UseTLS, "https", false, "Request HTTPS (recorded only, no certificate is configured)")
	for _, name := range []string{"name", "server-name", "ip", "port"} {
		_ = addCmd.MarkFlagRequired(name)
	}
}
