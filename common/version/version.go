// Package version reports what build of Hisho is running.
package version

import (
	"fmt"
	"runtime/debug"
)

// Name is the product name reported by the CLI and the status endpoints.
const Name = "Hisho"

// Set with -ldflags "-X github.com/bdobrica/Hisho/common/version.Version=...".
var (
	Version   = "v0.0.0-dev"
	GitCommit = ""
	BuildTime = ""
)

// Commit returns GitCommit, or the VCS revision the toolchain embedded when
// the binary was built without ldflags.
func Commit() string {
	if GitCommit != "" {
		return GitCommit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				return s.Value[:7]
			}
		}
	}
	return "unknown"
}

// Info is the one-line build description, e.g.
// "Hisho v1.2.0 (abc1234) built at 2026-01-02T15:04:05Z".
func Info() string {
	s := fmt.Sprintf("%s %s (%s)", Name, Version, Commit())
	if BuildTime != "" {
		s += " built at " + BuildTime
	}
	return s
}
