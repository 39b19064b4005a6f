// Package pathmap translates filesystem paths between the download
// client's view of storage and the orchestrator's view. Pure and
// stateless; both directions are no-ops when mapping is disabled or the
// path is outside the configured prefix.
package pathmap

import (
	"errors"
	"strings"
)

// Config is one remote path mapping: the same directory as seen by the
// download client (RemotePath) and by the orchestrator (LocalPath).
type Config struct {
	Enabled    bool   `json:"enabled"`
	RemotePath string `json:"remote_path"`
	LocalPath  string `json:"local_path"`
}

// ErrIncomplete is returned when an enabled mapping is missing a side.
var ErrIncomplete = errors.New("path mapping enabled but remote or local path is empty")

// Validate rejects enabled mappings with an empty side.
func Validate(cfg Config) error {
	if cfg.Enabled && (cfg.RemotePath == "" || cfg.LocalPath == "") {
		return ErrIncomplete
	}
	return nil
}

// remoteSeparator picks the separator style the remote side uses.
// Windows-style roots configure backslash paths.
func remoteSeparator(remotePath string) string {
	if strings.Contains(remotePath, "\\") {
		return "\\"
	}
	return "/"
}

// trimTrailing removes trailing separators of the given style, keeping a
// bare root intact.
func trimTrailing(p, sep string) string {
	for len(p) > len(sep) && strings.HasSuffix(p, sep) {
		p = p[:len(p)-len(sep)]
	}
	return p
}

// Transform maps a path reported by the download client into the
// orchestrator's namespace. Paths not under the remote prefix pass
// through unchanged.
func Transform(remotePath string, cfg Config) string {
	if !cfg.Enabled || cfg.RemotePath == "" || cfg.LocalPath == "" {
		return remotePath
	}
	sep := remoteSeparator(cfg.RemotePath)
	prefix := trimTrailing(cfg.RemotePath, sep)
	local := trimTrailing(cfg.LocalPath, "/")

	if trimTrailing(remotePath, sep) == prefix {
		return local
	}
	if strings.HasPrefix(remotePath, prefix+sep) {
		rest := strings.TrimPrefix(remotePath, prefix+sep)
		if sep == "\\" {
			rest = strings.ReplaceAll(rest, "\\", "/")
		}
		return local + "/" + rest
	}
	return remotePath
}

// ReverseTransform maps an orchestrator-namespace path into the download
// client's namespace, the inverse of Transform for any path under the
// configured prefix. The joined suffix uses whichever separator style the
// remote root uses.
func ReverseTransform(localPath string, cfg Config) string {
	if !cfg.Enabled || cfg.RemotePath == "" || cfg.LocalPath == "" {
		return localPath
	}
	sep := remoteSeparator(cfg.RemotePath)
	prefix := trimTrailing(cfg.RemotePath, sep)
	local := trimTrailing(cfg.LocalPath, "/")

	if trimTrailing(localPath, "/") == local {
		return prefix
	}
	if strings.HasPrefix(localPath, local+"/") {
		rest := strings.TrimPrefix(localPath, local+"/")
		if sep == "\\" {
			rest = strings.ReplaceAll(rest, "/", "\\")
		}
		return prefix + sep + rest
	}
	return localPath
}
