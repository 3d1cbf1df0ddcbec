package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"skymap/internal/server"
)

// newServeCmd creates the serve command: the long-running mode backing the
// UI shell.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local authentication API and token refresh scheduler",
		Long: `Starts the loopback HTTP API the UI shell talks to, restores any
persisted sign-ins, and keeps tokens refreshed in the background until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	c, err := buildCore()
	if err != nil {
		return err
	}
	defer c.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go c.orch.RunRefreshScheduler(ctx)

	srv := server.New(c.cfg.Server, c.orch)
	return srv.Run(ctx)
}
