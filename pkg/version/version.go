// Package version exposes build metadata for the discover binary.
// Version, GitCommit, and BuildDate are injected via -ldflags at build
// time.
package version

import "runtime"

var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = runtime.Version()
)
