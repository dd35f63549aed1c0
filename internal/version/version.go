// Package version holds build-time version information for the sommelier
// binary. The variables are overwritten at link time:
//
//	go build -ldflags="-X github.com/54b3r/sommelier-go/internal/version.Version=v0.3.0 \
//	                    -X github.com/54b3r/sommelier-go/internal/version.Commit=abc1234"
package version

import "fmt"

var (
	// Version is the semantic version of the binary. "dev" for local builds.
	Version = "dev"
	// Commit is the short git SHA the binary was built from.
	Commit = "unknown"
	// BuildDate is the UTC build date in RFC3339 format.
	BuildDate = "unknown"
)

// String renders the version triple the way the CLI, the MCP handshake and
// the health endpoint report it.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}
