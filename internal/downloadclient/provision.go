package downloadclient

import (
	"strings"

	"github.com/audiarr/audiarr/internal/pathmap"
)

// CategorySavePath computes the save path an adapter should provision for
// its category on first use. The orchestrator's download directory is
// first translated into the backend's coordinate space by applying the
// path mapping in reverse; the comparison against the backend's
// completion directory has to happen in the backend's namespace.
//
// When the translated directory sits under the completion directory the
// result is expressed relative to it, so the backend's internal moves
// stay consistent. Otherwise the absolute remote path is used.
func CategorySavePath(completionDir, downloadDir, category string, mapping pathmap.Config) (savePath string, relative bool) {
	remoteDir := pathmap.ReverseTransform(downloadDir, mapping)
	sep := "/"
	if strings.Contains(remoteDir, "\\") {
		sep = "\\"
	}
	remoteTarget := strings.TrimSuffix(remoteDir, sep) + sep + category

	if completionDir != "" {
		completion := strings.TrimSuffix(completionDir, sep)
		if remoteTarget == completion {
			return "", true
		}
		if strings.HasPrefix(remoteTarget, completion+sep) {
			return strings.TrimPrefix(remoteTarget, completion+sep), true
		}
	}
	return remoteTarget, false
}
