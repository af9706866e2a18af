// Package version carries build metadata for the registry relay binaries.
// Release builds set the variables with -ldflags, for example
//
//	-ldflags "-X crptapi/internal/version.Version=v1.4.0 -X crptapi/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	// Version is the release tag or commit hash.
	Version = "unknown"

	// BuildDate is the ISO 8601 UTC build timestamp.
	BuildDate = "unknown"

	// GitCommit is the commit SHA the binary was built from.
	GitCommit = "unknown"
)

// Info holds build metadata plus the identity of the running process.
type Info struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildDate  string `json:"build_date"`
	InstanceID string `json:"instance_id"`
	Hostname   string `json:"hostname"`
}

var (
	once sync.Once
	info Info
)

// GetInfo returns build metadata. The instance ID and hostname are computed on
// the first call and cached for the life of the process.
func GetInfo() Info {
	once.Do(func() {
		info = Info{
			Version:    Version,
			GitCommit:  GitCommit,
			BuildDate:  BuildDate,
			InstanceID: uuid.New().String(),
			Hostname:   getHostname(),
		}
	})
	return info
}

func getHostname() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return hostname
}

// String formats version info for CLI display.
func (i Info) String() string {
	return fmt.Sprintf("crptapi version %s (commit: %s, built: %s)", i.Version, i.GitCommit, i.BuildDate)
}

// UserAgent is the User-Agent sent to the registry when none is configured.
func (i Info) UserAgent() string {
	return "crptapi/" + i.Version
}
