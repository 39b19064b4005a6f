package downloadclient

import (
	"testing"

	"github.com/audiarr/audiarr/internal/pathmap"
)

func TestCategorySavePathRelative(t *testing.T) {
	savePath, relative := CategorySavePath("/downloads", "/downloads", "audiobooks", pathmap.Config{})
	if !relative {
		t.Fatalf("expected relative path under completion dir")
	}
	if savePath != "audiobooks" {
		t.Errorf("savePath = %q, want %q", savePath, "audiobooks")
	}
}

func TestCategorySavePathAbsoluteOutsideCompletionDir(t *testing.T) {
	savePath, relative := CategorySavePath("/srv/torrents", "/downloads", "audiobooks", pathmap.Config{})
	if relative {
		t.Fatalf("expected absolute path when download dir is outside the completion dir")
	}
	if savePath != "/downloads/audiobooks" {
		t.Errorf("savePath = %q", savePath)
	}
}

func TestCategorySavePathMapsIntoRemoteNamespace(t *testing.T) {
	mapping := pathmap.Config{
		Enabled:    true,
		RemotePath: "/data/complete",
		LocalPath:  "/mnt/seedbox",
	}
	savePath, relative := CategorySavePath("/data/complete", "/mnt/seedbox", "audiobooks", mapping)
	if !relative {
		t.Fatalf("expected mapped path to be relative to the remote completion dir")
	}
	if savePath != "audiobooks" {
		t.Errorf("savePath = %q, want %q", savePath, "audiobooks")
	}
}

func TestCategorySavePathWindowsRemote(t *testing.T) {
	mapping := pathmap.Config{
		Enabled:    true,
		RemotePath: `C:\Downloads`,
		LocalPath:  "/mnt/win",
	}
	savePath, relative := CategorySavePath(`C:\Downloads`, "/mnt/win", "audiobooks", mapping)
	if !relative {
		t.Fatalf("expected relative path")
	}
	if savePath != "audiobooks" {
		t.Errorf("savePath = %q, want %q", savePath, "audiobooks")
	}
}
