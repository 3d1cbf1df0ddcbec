package capability

import "skymap/pkg/auth"

// Compute derives the capability flags from the current slot states.
//
// Scanning needs only the source tenant; deployment needs both, since a
// deploy reads from source and writes to the gameboard.
func Compute(source, target auth.State) auth.CapabilityFlags {
	return auth.CapabilityFlags{
		ScanningEnabled:   source == auth.StateAuthenticated,
		DeploymentEnabled: source == auth.StateAuthenticated && target == auth.StateAuthenticated,
	}
}
