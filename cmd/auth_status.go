package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"skymap/pkg/auth"
)

// newAuthStatusCmd creates the auth status command.
func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show authentication status for both tenant slots",
		Args:  cobra.NoArgs,
		RunE:  runAuthStatus,
	}
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}
	defer c.Close()

	all := c.orch.StatusAll()

	w := table.NewWriter()
	w.SetOutputMirror(os.Stdout)
	w.AppendHeader(table.Row{"SLOT", "STATE", "USER", "TENANT", "EXPIRES"})
	for _, status := range all.Slots {
		w.AppendRow(table.Row{
			status.Slot,
			renderState(status),
			status.User,
			status.TenantID,
			renderExpiry(status.ExpiresAt),
		})
	}
	w.SetStyle(table.StyleLight)
	w.Render()

	fmt.Println()
	fmt.Printf("Scanning:   %s\n", renderCapability(all.Capabilities.ScanningEnabled))
	fmt.Printf("Deployment: %s\n", renderCapability(all.Capabilities.DeploymentEnabled))
	return nil
}

func renderState(status auth.SlotStatus) string {
	switch status.State {
	case "authenticated":
		return text.FgGreen.Sprint("authenticated")
	case "authenticating":
		return text.FgYellow.Sprint("authenticating")
	case "expired", "error":
		out := text.FgRed.Sprint(status.State)
		if status.Error != "" {
			out += " (" + status.Error + ")"
		}
		return out
	default:
		return status.State
	}
}

func renderExpiry(expiresAt *time.Time) string {
	if expiresAt == nil {
		return ""
	}
	return expiresAt.Local().Format("15:04:05")
}

func renderCapability(enabled bool) string {
	if enabled {
		return text.FgGreen.Sprint("enabled")
	}
	return text.FgHiBlack.Sprint("disabled")
}
