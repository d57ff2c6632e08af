// Package version reports build information for famiplay.
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags "-X famiplay/internal/version.Version=..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
	BuildUser = "unknown"
)

// BuildInfo describes the running binary
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	BuildUser  string `json:"build_user"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	CGOEnabled bool   `json:"cgo_enabled"`
	Tags       string `json:"tags,omitempty"`
}

// GetBuildInfo merges the linker-provided fields with what the toolchain
// embedded in the binary
func GetBuildInfo() BuildInfo {
	bi := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		BuildUser: BuildUser,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return bi
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if bi.GitCommit == "unknown" {
				bi.GitCommit = s.Value
			}
		case "vcs.time":
			if bi.BuildTime == "unknown" {
				bi.BuildTime = s.Value
			}
		case "CGO_ENABLED":
			bi.CGOEnabled = s.Value == "1"
		case "-tags":
			bi.Tags = s.Value
		}
	}
	return bi
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}

// GetVersion returns the release version, or dev-<commit> for local builds
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	if commit := GetBuildInfo().GitCommit; commit != "unknown" && len(commit) >= 7 {
		return "dev-" + shortCommit(commit)
	}
	return Version
}

// GetDetailedVersion returns a one-line description of the build
func GetDetailedVersion() string {
	bi := GetBuildInfo()

	var sb strings.Builder
	fmt.Fprintf(&sb, "famiplay %s", bi.Version)
	if bi.GitCommit != "unknown" {
		fmt.Fprintf(&sb, " (commit %s)", shortCommit(bi.GitCommit))
	}
	if bi.BuildTime != "unknown" {
		built := bi.BuildTime
		if t, err := time.Parse(time.RFC3339, built); err == nil {
			built = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&sb, " built on %s", built)
	}
	fmt.Fprintf(&sb, " with %s for %s/%s", bi.GoVersion, bi.Platform, bi.Arch)
	if bi.BuildUser != "unknown" {
		fmt.Fprintf(&sb, " by %s", bi.BuildUser)
	}
	return sb.String()
}

// PrintBuildInfo writes the build information to w, one field per line
func PrintBuildInfo(w io.Writer) {
	bi := GetBuildInfo()

	fmt.Fprintln(w, "famiplay - NES movie player")
	fmt.Fprintf(w, "Version:     %s\n", bi.Version)
	fmt.Fprintf(w, "Git Commit:  %s\n", bi.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", bi.BuildTime)
	fmt.Fprintf(w, "Build User:  %s\n", bi.BuildUser)
	fmt.Fprintf(w, "Go Version:  %s\n", bi.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", bi.Platform, bi.Arch)
	fmt.Fprintf(w, "CGO Enabled: %t\n", bi.CGOEnabled)
	if bi.Tags != "" {
		fmt.Fprintf(w, "Build Tags:  %s\n", bi.Tags)
	}
}
