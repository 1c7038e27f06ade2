package contracts

import "fmt"

const (
	// Version is the current version of the application
	Version = "1.0.0"

	VersionMajor      = 1
	VersionMinor      = 0
	VersionPatch      = 0
	VersionPrerelease = ""

	// DataFormatVersion is the version of the dashboard JSON layout
	DataFormatVersion = "v1"

	// APIVersion is the version of the HTTP and live channel contracts
	APIVersion = "v1"
)

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"

	// GitBranch is set during build using ldflags
	GitBranch = "unknown"
)

// GetVersionString returns a formatted version string
func GetVersionString() string {
	return fmt.Sprintf("issuepulse v%s", Version)
}
