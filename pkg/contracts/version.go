package contracts

import (
	"fmt"
	"runtime"
)

// Version is the current version of the application
const Version = "1.0.0"

var (
	// BuildTime is set during build using ldflags
	BuildTime = "unknown"

	// GitCommit is set during build using ldflags
	GitCommit = "unknown"
)

// VersionInfo contains detailed version information
type VersionInfo struct {
	Version      string `json:"version"`
	BuildTime    string `json:"build_time"`
	GitCommit    string `json:"git_commit"`
	GoVersion    string `json:"go_version"`
	OS           string `json:"os"`
	Architecture string `json:"architecture"`
}

// GetVersionInfo returns detailed version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:      Version,
		BuildTime:    BuildTime,
		GitCommit:    GitCommit,
		GoVersion:    runtime.Version(),
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
	}
}

// String formats the version for --version output
func (v VersionInfo) String() string {
	return fmt.Sprintf("%s (built: %s, commit: %s, go: %s, os: %s/%s)",
		v.Version, v.BuildTime, v.GitCommit, v.GoVersion, v.OS, v.Architecture)
}
