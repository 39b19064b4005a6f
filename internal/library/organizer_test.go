package library

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/audiarr/audiarr/internal/models"
)

func testWork() *models.Work {
	return &models.Work{ID: 1, Title: "The Housemaid", Author: "Freida McFadden"}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"The Housemaid", "The Housemaid"},
		{"Dune: Messiah", "Dune - Messiah"},
		{"What If?/Maybe", "What If-Maybe"},
		{"  trailing dots... ", "trailing dots"},
		{`He said "hi" <now>`, "He said 'hi' now"},
		{"a|b*c", "a-bc"},
	}
	for _, tc := range cases {
		if got := SanitizeFilename(tc.in); got != tc.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTitleDir(t *testing.T) {
	o := NewOrganizer("/library")
	want := filepath.Join("/library", "Freida McFadden", "The Housemaid")
	if got := o.TitleDir(testWork()); got != want {
		t.Errorf("TitleDir = %q, want %q", got, want)
	}

	noAuthor := &models.Work{ID: 2, Title: "Anonymous Tales"}
	want = filepath.Join("/library", "Unknown Author", "Anonymous Tales")
	if got := o.TitleDir(noAuthor); got != want {
		t.Errorf("TitleDir without author = %q, want %q", got, want)
	}

	if got := o.TitleDir(&models.Work{ID: 3, Title: "..."}); got != "" {
		t.Errorf("TitleDir with unusable title = %q, want empty", got)
	}
}

func TestOrganizeSingleFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "the.housemaid.m4b")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	libDir := t.TempDir()
	o := NewOrganizer(libDir)
	dest, err := o.Organize(src, testWork())
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	if dest != o.TitleDir(testWork()) {
		t.Errorf("dest = %q, want %q", dest, o.TitleDir(testWork()))
	}
	data, err := os.ReadFile(filepath.Join(dest, "the.housemaid.m4b"))
	if err != nil {
		t.Fatalf("organized file missing: %v", err)
	}
	if string(data) != "audio" {
		t.Errorf("organized file content = %q", data)
	}
}

func TestOrganizeDirectoryKeepsOnlyMedia(t *testing.T) {
	srcDir := t.TempDir()
	files := map[string]bool{
		"Part 1.mp3": true,
		"Part 2.mp3": true,
		"cover.jpg":  true,
		"info.nfo":   false,
		"sample.exe": false,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(srcDir, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	o := NewOrganizer(t.TempDir())
	dest, err := o.Organize(srcDir, testWork())
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	for name, keep := range files {
		_, err := os.Stat(filepath.Join(dest, name))
		if keep && err != nil {
			t.Errorf("expected %s in library, got %v", name, err)
		}
		if !keep && err == nil {
			t.Errorf("did not expect %s in library", name)
		}
	}
}

func TestOrganizeArchive(t *testing.T) {
	srcDir := t.TempDir()
	archivePath := filepath.Join(srcDir, "release.zip")
	f, err := os.Create(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, name := range []string{"book.m4b", "readme.txt"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(name)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	o := NewOrganizer(t.TempDir())
	dest, err := o.Organize(archivePath, testWork())
	if err != nil {
		t.Fatalf("Organize failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "book.m4b")); err != nil {
		t.Errorf("expected book.m4b extracted from archive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "readme.txt")); err == nil {
		t.Error("did not expect readme.txt in library")
	}
}

func TestOrganizeNoMediaFails(t *testing.T) {
	srcDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(srcDir, "info.nfo"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	o := NewOrganizer(t.TempDir())
	if _, err := o.Organize(srcDir, testWork()); err == nil {
		t.Fatal("expected error for release without media files")
	}
}
