package cmd

import (
	"github.com/spf13/cobra"

	"skymap/pkg/auth"
)

var deployTool string

// newDeployCmd creates the deploy command. Deployment reads from the source
// tenant and writes to the gameboard, so it needs both tokens.
func newDeployCmd() *cobra.Command {
	deployCmd := &cobra.Command{
		Use:   "deploy [-- tool args...]",
		Short: "Run the deployer against the gameboard tenant",
		Long: `Runs the deployment tool with valid tokens for both slots exported as
SKYMAP_SOURCE_TOKEN and SKYMAP_TARGET_TOKEN. Requires both tenants to be
signed in.

Examples:
  skymap deploy
  skymap deploy -- --dry-run`,
		Args: cobra.ArbitraryArgs,
		RunE: runDeploy,
	}
	deployCmd.Flags().StringVar(&deployTool, "tool", "skymap-deployer", "deployer executable to run")
	return deployCmd
}

func runDeploy(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}
	defer c.Close()

	caps := c.orch.StatusAll().Capabilities
	if !caps.DeploymentEnabled {
		slot := auth.SlotTarget
		if !caps.ScanningEnabled {
			slot = auth.SlotSource
		}
		return &auth.AuthRequiredError{Slot: slot, Reason: "deployment requires sign-ins for both tenants"}
	}

	return c.bridge.Run(cmd.Context(), []auth.Slot{auth.SlotSource, auth.SlotTarget}, deployTool, args...)
}
