package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"skymap/pkg/auth"
)

// newAuthLoginCmd creates the auth login command.
func newAuthLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to a tenant slot with a device code",
		Long: `Starts a device-code sign-in for the given slot and waits for it to
complete.

Examples:
  skymap auth login --slot source
  skymap auth login --slot target`,
		Args: cobra.NoArgs,
		RunE: runAuthLogin,
	}
	loginCmd.Flags().StringVar(&authSlot, "slot", "source", "tenant slot to sign in (source or target)")
	return loginCmd
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	slot, err := parseSlotFlag()
	if err != nil {
		return err
	}

	c, err := buildCore()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx := cmd.Context()
	prompt, err := c.orch.SignIn(ctx, slot)
	if err != nil {
		return &auth.AuthFailedError{Slot: slot, Err: err}
	}

	fmt.Printf("To sign in, open %s and enter the code %s\n", prompt.VerificationURI, prompt.UserCode)
	fmt.Printf("The code expires in %s.\n\n", (time.Duration(prompt.ExpiresIn) * time.Second).Round(time.Second))

	spin := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin.Suffix = " Waiting for sign-in to complete..."
	spin.Start()
	flow, err := c.orch.AwaitFlow(ctx, slot)
	spin.Stop()
	if err != nil {
		return err
	}

	switch flow {
	case auth.FlowStatusCompleted:
		status, err := c.orch.Status(slot)
		if err != nil {
			return err
		}
		fmt.Printf("Signed in to %s as %s (tenant %s)\n", slot, status.User, status.TenantID)
		return nil
	case auth.FlowStatusDenied:
		return &auth.AuthFailedError{Slot: slot, Err: errors.New("sign-in was declined")}
	case auth.FlowStatusExpired:
		return &auth.AuthFailedError{Slot: slot, Err: errors.New("the device code expired before sign-in completed")}
	default:
		status, statusErr := c.orch.Status(slot)
		reason := "sign-in failed"
		if statusErr == nil && status.Error != "" {
			reason = status.Error
		}
		return &auth.AuthFailedError{Slot: slot, Err: errors.New(reason)}
	}
}
