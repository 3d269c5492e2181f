// Package version exposes the build metadata stamped into the docqa binary.
package version

// Overridden through -ldflags by the release build.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
