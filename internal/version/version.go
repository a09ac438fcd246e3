// Package version reports build information for the grow binary
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	// These will be set at build time via -ldflags
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	Modified  bool   `json:"modified"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns build information, filling gaps from the VCS stamp
// embedded by the Go toolchain
func GetBuildInfo() BuildInfo {
	buildInfo := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if GitCommit == "unknown" {
					buildInfo.GitCommit = setting.Value
				}
			case "vcs.time":
				if BuildTime == "unknown" {
					buildInfo.BuildTime = setting.Value
				}
			case "vcs.modified":
				buildInfo.Modified = setting.Value == "true"
			}
		}
	}

	return buildInfo
}

// ShortCommit returns the first seven characters of the commit hash
func (b BuildInfo) ShortCommit() string {
	if len(b.GitCommit) > 7 {
		return b.GitCommit[:7]
	}
	return b.GitCommit
}

// String formats the build information on one line
func (b BuildInfo) String() string {
	s := fmt.Sprintf("grow %s", b.Version)

	if b.GitCommit != "unknown" {
		s += fmt.Sprintf(" (commit %s", b.ShortCommit())
		if b.Modified {
			s += ", modified"
		}
		s += ")"
	}

	if b.BuildTime != "unknown" {
		if t, err := time.Parse(time.RFC3339, b.BuildTime); err == nil {
			s += fmt.Sprintf(" built %s", humanize.Time(t))
		} else {
			s += fmt.Sprintf(" built %s", b.BuildTime)
		}
	}

	return s + fmt.Sprintf(" with %s for %s/%s", b.GoVersion, b.Platform, b.Arch)
}

// GetVersion returns a simple version string
func GetVersion() string {
	if Version == "dev" {
		buildInfo := GetBuildInfo()
		if buildInfo.GitCommit != "unknown" && len(buildInfo.GitCommit) >= 7 {
			return "dev-" + buildInfo.ShortCommit()
		}
	}
	return Version
}

// PrintBuildInfo writes formatted build information to w
func PrintBuildInfo(w io.Writer) {
	buildInfo := GetBuildInfo()

	fmt.Fprintf(w, "grow - frame-paced game loop\n")
	fmt.Fprintf(w, "Version:     %s\n", GetVersion())
	fmt.Fprintf(w, "Git Commit:  %s\n", buildInfo.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", buildInfo.BuildTime)
	fmt.Fprintf(w, "Go Version:  %s\n", buildInfo.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", buildInfo.Platform, buildInfo.Arch)
}
