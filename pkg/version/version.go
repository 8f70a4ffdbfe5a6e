// Package version reports build information for fcmirror.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Name is the program name.
const Name = "fcmirror"

// Set via ldflags:
//
//	-X github.com/Aman-CERP/fcmirror/pkg/version.Version=$(VERSION)
//	-X github.com/Aman-CERP/fcmirror/pkg/version.Commit=$(COMMIT)
//	-X github.com/Aman-CERP/fcmirror/pkg/version.Date=$(DATE)
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// BuildInfo is version information for JSON output.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetInfo returns the build information. Without ldflags, commit and
// date fall back to the VCS stamp embedded by the go tool, if any.
func GetInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		Commit:    Commit,
		Date:      Date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyVCS(&info, bi.Settings)
	}
	return info
}

func applyVCS(info *BuildInfo, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "unknown" && s.Value != "" {
				info.Commit = s.Value[:min(len(s.Value), 12)]
			}
		case "vcs.time":
			if info.Date == "unknown" && s.Value != "" {
				info.Date = s.Value
			}
		}
	}
}

// String returns the full one-line version.
func String() string {
	info := GetInfo()
	return fmt.Sprintf("%s %s (commit: %s, built: %s, go: %s, %s/%s)",
		Name, info.Version, info.Commit, info.Date, info.GoVersion, info.OS, info.Arch)
}

// Short returns the version alone.
func Short() string {
	return Version
}

// UserAgent is the HTTP User-Agent sent to servers.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (+%s/%s)", Name, Version, runtime.GOOS, runtime.GOARCH)
}
