// Package identity reports who this device is: the name it advertises and
// the firmware version it runs.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// DefaultVersion is reported when metadata.json is missing or unreadable.
const DefaultVersion = "0.1.0"

// DefaultName is used when the hostname cannot be read.
const DefaultName = "btplayer"

// Info holds device identity information.
type Info struct {
	Hostname string `json:"hostname"`
	Version  string `json:"version"`
}

// Get collects identity information. metadata.json is read from dir.
func Get(dir string) Info {
	return Info{
		Hostname: Hostname(),
		Version:  VersionFromDir(dir),
	}
}

// TXT renders the info as DNS-SD TXT records.
func (i Info) TXT() []string {
	return []string{"version=" + i.Version, "host=" + i.Hostname}
}

// Hostname returns the short system hostname.
func Hostname() string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return DefaultName
	}
	if i := strings.IndexByte(h, '.'); i > 0 {
		h = h[:i]
	}
	return h
}

// VersionFromDir reads "version" from dir/metadata.json, falling back to
// DefaultVersion.
func VersionFromDir(dir string) string {
	if dir == "" {
		return DefaultVersion
	}
	data, err := os.ReadFile(filepath.Join(dir, "metadata.json"))
	if err != nil {
		return DefaultVersion
	}

	var meta struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return DefaultVersion
	}
	if v := strings.TrimSpace(meta.Version); v != "" {
		return v
	}
	return DefaultVersion
}
