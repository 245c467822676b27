// Package misc keeps program identity helpers used across the program.
package misc

import (
	"runtime/debug"
)

const appName = "jsg"

// set by the linker during release builds
var (
	version string
	gitHash string
)

// GetAppName returns short program name used in logs, reports and temporary file names.
func GetAppName() string {
	return appName
}

// GetVersion returns program version. When not set by the linker it falls back
// to module build information.
func GetVersion() string {
	if len(version) > 0 {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && len(bi.Main.Version) > 0 {
		return bi.Main.Version
	}
	return "unknown"
}

// GetGitHash returns VCS revision the program was built from.
func GetGitHash() string {
	if len(gitHash) > 0 {
		return gitHash
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		var rev, modified string
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				rev = s.Value
			case "vcs.modified":
				if s.Value == "true" {
					modified = "*"
				}
			}
		}
		if len(rev) > 0 {
			if len(rev) > 12 {
				rev = rev[:12]
			}
			return rev + modified
		}
	}
	return "unknown"
}
