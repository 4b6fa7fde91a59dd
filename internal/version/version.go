package version

import (
	"runtime/debug"
)

var version = "dev"

// Version returns the current version string
func Version() string {
	rev := vcsRevision()
	if rev != "" {
		return version + " (" + rev + ")"
	}
	return version
}

// RawVersion returns the bare version without VCS decoration.
func RawVersion() string {
	return version
}

// vcsRevision returns the short VCS revision from build info.
func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			if len(setting.Value) > 12 {
				return setting.Value[:12]
			}
			return setting.Value
		}
	}
	return ""
}
