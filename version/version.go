// Package version holds build information injected via ldflags:
//
//	-X 'github.com/skillsync/skillextract/version.GitRelease=v0.1.0'
//	-X 'github.com/skillsync/skillextract/version.GitCommit=abc123'
//	-X 'github.com/skillsync/skillextract/version.GitCommitDate=2025-01-01T00:00:00Z'
package version

import (
	"fmt"
	"runtime"
)

var (
	// GitRelease is the release tag, e.g. v0.1.0.
	GitRelease = "dev"
	// GitCommit is the commit the binary was built from.
	GitCommit = "unknown"
	// GitCommitDate is the commit timestamp (RFC3339).
	GitCommitDate = "unknown"
	// GoInfo describes the toolchain and platform.
	GoInfo = fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
)

// Info is the structured form printed by `skillextract version -o json`.
type Info struct {
	Release    string `json:"release" yaml:"release"`
	Commit     string `json:"commit" yaml:"commit"`
	CommitDate string `json:"commit_date" yaml:"commit_date"`
	Go         string `json:"go" yaml:"go"`
}

// Get returns the current build information.
func Get() Info {
	return Info{
		Release:    GitRelease,
		Commit:     GitCommit,
		CommitDate: GitCommitDate,
		Go:         GoInfo,
	}
}
