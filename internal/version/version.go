// Package version exposes build metadata injected at link time.
package version

import "fmt"

// Set via ldflags:
//
//	-X github.com/marketlane/chatlink/internal/version.Version=...
//	-X github.com/marketlane/chatlink/internal/version.Commit=...
//	-X github.com/marketlane/chatlink/internal/version.BuildTime=...
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// String returns the full version line.
func String() string {
	return fmt.Sprintf("%s (%s) built %s", Version, Commit, BuildTime)
}
