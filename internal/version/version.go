// Package version reports the build's version, preferring an
// ldflags-injected value and falling back to module build info.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is injected at release time:
//
//	-ldflags="-X github.com/runlight/threadview/internal/version.Version=v1.0.0"
//
// Development builds leave it empty and derive a value from build info.
var Version = ""

// Get resolves the effective version string.
func Get() string {
	if Version != "" {
		return Version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	if rev := vcsRevision(info); len(rev) >= 7 {
		return "dev-" + rev[:7]
	}
	return "dev"
}

// String formats the version banner printed by the version command.
func String(name string) string {
	return fmt.Sprintf("%s version %s", name, Get())
}

func vcsRevision(info *debug.BuildInfo) string {
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
