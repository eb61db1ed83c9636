// Package version holds the build version reported by the CLI.
package version

// Version is the semantic version of this build. Overridden at release
// time via -ldflags "-X .../internal/version.Version=...".
var Version = "0.1.0-dev"
