// Package version carries build metadata set via ldflags, e.g.
//
//	go build -ldflags "-X github.com/bdobrica/precommander/common/version.Version=v1.2.0"
package version

import "fmt"

var (
	// Version is the semantic version.
	Version = "v0.0.0-dev"

	// GitCommit is the git commit hash.
	GitCommit = "unknown"

	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)

// Info returns a one-line description of the build for name.
func Info(name string) string {
	return fmt.Sprintf("%s %s (%s) built at %s", name, Version, GitCommit, BuildTime)
}
