package cmd

import (
	"github.com/spf13/cobra"

	"skymap/pkg/auth"
)

var scanTool string

// newScanCmd creates the scan command. The actual scanning is done by an
// external tool; skymap's job is gating it on a valid source sign-in and
// handing it the token through the environment.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [-- tool args...]",
		Short: "Run the resource scanner against the source tenant",
		Long: `Runs the scanning tool with a valid source-tenant token exported as
SKYMAP_SOURCE_TOKEN. Requires an authenticated source slot.

Examples:
  skymap scan
  skymap scan -- --resource-group rg-lab`,
		Args: cobra.ArbitraryArgs,
		RunE: runScan,
	}
	scanCmd.Flags().StringVar(&scanTool, "tool", "skymap-scanner", "scanner executable to run")
	return scanCmd
}

func runScan(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}
	defer c.Close()

	if !c.orch.StatusAll().Capabilities.ScanningEnabled {
		return &auth.AuthRequiredError{Slot: auth.SlotSource, Reason: "scanning requires a source tenant sign-in"}
	}

	return c.bridge.Run(cmd.Context(), []auth.Slot{auth.SlotSource}, scanTool, args...)
}
