// Package version holds build metadata injected with -ldflags.
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

// Build metadata. Release builds set these with
// -ldflags "-X github.com/Sumatoshi-tech/dagline/pkg/version.Version=...".
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills metadata that was not injected at link time from
// the module build info, so "go install" builds still report a version.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		}
	}
}

// String formats the metadata for "dagline version".
func String() string {
	return fmt.Sprintf("dagline %s (commit: %s, built: %s)", Version, Commit, Date)
}
