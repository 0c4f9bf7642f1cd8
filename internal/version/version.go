// Package version holds build metadata set with -ldflags "-X ...".
package version

import "fmt"

//nolint:revive // overwritten by the linker
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// String formats the build metadata for humans.
func String() string {
	return fmt.Sprintf("reag %s (commit %s, built %s)", Version, Commit, Date)
}
