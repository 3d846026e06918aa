// Package version carries the build identity, set at link time via
// -ldflags "-X quickroute/internal/version.Version=...".
package version

import "fmt"

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// FullVersion is the human-readable build string.
func FullVersion() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
