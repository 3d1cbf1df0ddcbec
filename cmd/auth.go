package cmd

import (
	"github.com/spf13/cobra"

	"skymap/pkg/auth"
)

// authSlot is the shared --slot flag for auth subcommands.
var authSlot string

// newAuthCmd creates the auth command group.
func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage tenant sign-ins",
		Long: `Sign in to, inspect, and sign out of the source and gameboard (target)
tenant slots.`,
	}

	authCmd.AddCommand(newAuthLoginCmd())
	authCmd.AddCommand(newAuthStatusCmd())
	authCmd.AddCommand(newAuthLogoutCmd())
	return authCmd
}

// parseSlotFlag turns the --slot value into a Slot.
func parseSlotFlag() (auth.Slot, error) {
	return auth.ParseSlot(authSlot)
}
