// Package version reports how the docserver binary was built.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
	"time"
)

// Set at build time with -ldflags "-X ...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version" yaml:"version"`
	GitCommit string    `json:"git_commit" yaml:"git_commit"`
	Dirty     bool      `json:"dirty,omitempty" yaml:"dirty,omitempty"`
	BuildTime time.Time `json:"build_time,omitempty" yaml:"build_time,omitempty"`
	GoVersion string    `json:"go_version" yaml:"go_version"`
	Platform  string    `json:"platform" yaml:"platform"`
}

var vcsSettings = sync.OnceValue(func() map[string]string {
	settings := make(map[string]string)
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return settings
	}

	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		settings["module.version"] = info.Main.Version
	}
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	return settings
})

// Get collects build information from link-time variables, falling back to
// the VCS stamp the Go toolchain embeds.
func Get() Info {
	settings := vcsSettings()

	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		Dirty:     settings["vcs.modified"] == "true",
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev, ok := settings["vcs.revision"]; ok {
			info.GitCommit = rev
		}
	}

	if info.Version == "" || info.Version == "dev" {
		switch {
		case settings["module.version"] != "":
			info.Version = settings["module.version"]
		case len(info.GitCommit) >= 7 && info.GitCommit != "unknown":
			info.Version = "dev-" + info.GitCommit[:7]
		default:
			info.Version = "dev"
		}
	}

	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(settings["vcs.time"])
	}

	return info
}

// Short returns the one line form printed by `version --short`.
func (i Info) Short() string {
	if len(i.GitCommit) >= 7 && i.GitCommit != "unknown" && !strings.HasPrefix(i.Version, "dev-") {
		return fmt.Sprintf("%s (%s)", i.Version, i.GitCommit[:7])
	}
	return i.Version
}

// String returns a multi-line description.
func (i Info) String() string {
	lines := []string{"Version: " + i.Version}

	if i.GitCommit != "unknown" && i.GitCommit != "" {
		commit := i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, "Commit: "+commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)

	return strings.Join(lines, "\n")
}

// IsRelease reports whether this is a tagged build.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !strings.HasPrefix(i.Version, "dev-")
}

func parseTime(value string) time.Time {
	if value == "" || value == "unknown" {
		return time.Time{}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
