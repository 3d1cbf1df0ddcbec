package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"skymap/internal/config"
	"skymap/pkg/auth"
	"skymap/pkg/logging"
)

// Exit codes for CLI commands. These are stable so scripts can branch on
// authentication state without parsing output.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates a sign-in flow ran and failed.
	ExitCodeAuthFailed = 3
)

// configPath is the --config persistent flag value. Empty means the default
// location under the user config directory.
var configPath string

// rootCmd is the base command for the skymap application.
var rootCmd = &cobra.Command{
	Use:   "skymap",
	Short: "Azure tenant scanning and gameboard deployment",
	Long: `skymap signs in to the source and gameboard Azure AD tenants via
device-code flows, keeps the tokens fresh, and hands them to the scanning
and deployment tools. Tokens are encrypted at rest and never cross tenant
boundaries.`,
	SilenceUsage: true,
}

// SetVersion sets the version for the root command. Called from main with
// the build-time version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the CLI and exits the process with a semantic exit code.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "skymap version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps the error taxonomy onto exit codes.
func getExitCode(err error) int {
	var authRequired *auth.AuthRequiredError
	if errors.As(err, &authRequired) {
		return ExitCodeAuthRequired
	}

	var authFailed *auth.AuthFailedError
	if errors.As(err, &authFailed) {
		return ExitCodeAuthFailed
	}

	return ExitCodeError
}

// loadConfig loads the configuration honoring --config, and initializes
// logging from it.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	logging.Init(logging.ParseLevel(cfg.LogLevel), os.Stderr)
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default is $HOME/.config/skymap/config.yaml)")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newDeployCmd())
}
