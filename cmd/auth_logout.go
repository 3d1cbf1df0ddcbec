package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutAll bool

// newAuthLogoutCmd creates the auth logout command.
func newAuthLogoutCmd() *cobra.Command {
	logoutCmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out of a tenant slot and destroy its stored tokens",
		Long: `Cancels any in-progress sign-in for the slot and deletes its encrypted
token record.

Examples:
  skymap auth logout --slot target
  skymap auth logout --all`,
		Args: cobra.NoArgs,
		RunE: runAuthLogout,
	}
	logoutCmd.Flags().StringVar(&authSlot, "slot", "source", "tenant slot to sign out (source or target)")
	logoutCmd.Flags().BoolVar(&logoutAll, "all", false, "sign out of both slots")
	return logoutCmd
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}
	defer c.Close()

	if logoutAll {
		if err := c.orch.SignOutAll(); err != nil {
			return err
		}
		fmt.Println("Signed out of both slots")
		return nil
	}

	slot, err := parseSlotFlag()
	if err != nil {
		return err
	}
	if err := c.orch.SignOut(slot); err != nil {
		return err
	}
	fmt.Printf("Signed out of %s\n", slot)
	return nil
}
