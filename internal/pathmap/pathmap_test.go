package pathmap_test

import (
	"testing"

	"github.com/audiarr/audiarr/internal/pathmap"
)

func TestTransform(t *testing.T) {
	cfg := pathmap.Config{Enabled: true, RemotePath: "/downloads", LocalPath: "/mnt/media/downloads"}

	got := pathmap.Transform("/downloads/audiobooks/Book Title", cfg)
	want := "/mnt/media/downloads/audiobooks/Book Title"
	if got != want {
		t.Errorf("Transform returned %q, want %q", got, want)
	}
}

func TestTransformExactMatch(t *testing.T) {
	cfg := pathmap.Config{Enabled: true, RemotePath: "/downloads/", LocalPath: "/mnt/media/downloads"}

	if got := pathmap.Transform("/downloads", cfg); got != "/mnt/media/downloads" {
		t.Errorf("Exact match returned %q", got)
	}
	if got := pathmap.Transform("/downloads/", cfg); got != "/mnt/media/downloads" {
		t.Errorf("Exact match with trailing slash returned %q", got)
	}
}

func TestTransformNonMatchPassthrough(t *testing.T) {
	cfg := pathmap.Config{Enabled: true, RemotePath: "/downloads", LocalPath: "/mnt/media/downloads"}

	p := "/other/place/file.m4b"
	if got := pathmap.Transform(p, cfg); got != p {
		t.Errorf("Non-matching path changed: %q", got)
	}
	if got := pathmap.ReverseTransform(p, cfg); got != p {
		t.Errorf("Non-matching path changed on reverse: %q", got)
	}
}

func TestTransformDisabledNoOp(t *testing.T) {
	cfg := pathmap.Config{Enabled: false, RemotePath: "/downloads", LocalPath: "/mnt/media/downloads"}

	p := "/downloads/audiobooks/Book"
	if got := pathmap.Transform(p, cfg); got != p {
		t.Errorf("Disabled mapping transformed path: %q", got)
	}
	if got := pathmap.ReverseTransform(p, cfg); got != p {
		t.Errorf("Disabled mapping reverse-transformed path: %q", got)
	}
}

func TestReverseTransformWindowsRemote(t *testing.T) {
	cfg := pathmap.Config{Enabled: true, RemotePath: `C:\Torrents\Complete`, LocalPath: "/mnt/torrents"}

	got := pathmap.ReverseTransform("/mnt/torrents/audiobooks/Book Title", cfg)
	want := `C:\Torrents\Complete\audiobooks\Book Title`
	if got != want {
		t.Errorf("ReverseTransform returned %q, want %q", got, want)
	}

	// And back again.
	back := pathmap.Transform(got, cfg)
	if back != "/mnt/torrents/audiobooks/Book Title" {
		t.Errorf("Round trip through Windows remote returned %q", back)
	}
}

func TestRoundTrip(t *testing.T) {
	cfg := pathmap.Config{Enabled: true, RemotePath: "/remote/done/", LocalPath: "/mnt/done"}

	paths := []string{
		"/mnt/done/Author Name/Book Title",
		"/mnt/done/file.m4b",
		"/mnt/done",
	}
	for _, p := range paths {
		remote := pathmap.ReverseTransform(p, cfg)
		back := pathmap.Transform(remote, cfg)
		if back != p {
			t.Errorf("Round trip for %q: reverse=%q back=%q", p, remote, back)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := pathmap.Validate(pathmap.Config{Enabled: true, RemotePath: "/a", LocalPath: ""}); err == nil {
		t.Error("Expected validation error for enabled mapping with empty local path")
	}
	if err := pathmap.Validate(pathmap.Config{Enabled: true, RemotePath: "", LocalPath: "/b"}); err == nil {
		t.Error("Expected validation error for enabled mapping with empty remote path")
	}
	if err := pathmap.Validate(pathmap.Config{Enabled: false}); err != nil {
		t.Errorf("Disabled mapping should validate, got %v", err)
	}
	if err := pathmap.Validate(pathmap.Config{Enabled: true, RemotePath: "/a", LocalPath: "/b"}); err != nil {
		t.Errorf("Complete mapping should validate, got %v", err)
	}
}
