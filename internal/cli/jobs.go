package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/offolaunch/launchtrack/internal/services"
	"github.com/spf13/cobra"
)

type SyncOptions struct {
	*RootOptions
	JSON bool
}

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one permit sync pass against the agencies and print the summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.Config, opts.Logger, false)
			if err != nil {
				return err
			}
			defer a.close()

			summary, err := a.svc.Sync.SyncAll(cmd.Context())
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary, opts.JSON)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "print the summary as JSON")

	return cmd
}

func printSummary(w io.Writer, s *services.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}

	fmt.Fprintf(w, "synced %d/%d permits (%d failed) in %s\n", s.Successful, s.Total, s.Failed, s.Duration)
	for _, e := range s.Errors {
		fmt.Fprintf(w, "  %s: %s\n", e.PermitID, e.Error)
	}
	return nil
}

func NewScanCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Flag permits expiring soon and send upcoming inspection reminders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(opts.Config, opts.Logger, false)
			if err != nil {
				return err
			}
			defer a.close()

			flagged, err := a.svc.Permits.FlagExpiring(cmd.Context())
			if err != nil {
				return fmt.Errorf("expiry scan: %w", err)
			}
			reminded, err := a.svc.Inspections.SendReminders(cmd.Context())
			if err != nil {
				return fmt.Errorf("inspection reminders: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "flagged %d expiring permits, reminded %d inspections\n", flagged, reminded)
			return nil
		},
	}
}
