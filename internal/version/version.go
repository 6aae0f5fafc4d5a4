// Package version reports build metadata for gxcam.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"gocv.io/x/gocv"
)

// Set via -ldflags "-X github.com/quicoa/daheng-camera-class/internal/version.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// Info describes the running binary and the OpenCV it links against.
type Info struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildDate     string `json:"build_date,omitempty"`
	Modified      bool   `json:"modified,omitempty"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	GoCVVersion   string `json:"gocv_version"`
	OpenCVVersion string `json:"opencv_version"`
}

// Get collects build information. Missing ldflags values are filled from
// the VCS stamp embedded by the go tool when available.
func Get() Info {
	info := Info{
		Version:       Version,
		GitCommit:     GitCommit,
		BuildDate:     BuildDate,
		GoVersion:     runtime.Version(),
		Platform:      fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		GoCVVersion:   gocv.Version(),
		OpenCVVersion: gocv.OpenCVVersion(),
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		applyBuildSettings(&info, bi.Settings)
	}
	return info
}

func applyBuildSettings(info *Info, settings []debug.BuildSetting) {
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
}

// String returns a one-line description, e.g. "gxcam dev (abc1234, opencv 4.11.0)".
func (i Info) String() string {
	commit := i.GitCommit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	if commit == "" {
		commit = "unknown"
	}
	if i.Modified {
		commit += "-dirty"
	}
	return fmt.Sprintf("gxcam %s (%s, opencv %s)", i.Version, commit, i.OpenCVVersion)
}
