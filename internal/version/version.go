// Package version provides build-time version information.
package version

// Set at build time with -ldflags "-X swatch-inspector/internal/version.Version=...".
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
