// Package library owns the on-disk library layout and the download-dir
// watcher. Finished downloads are organized into Author/Title folders;
// archives are unpacked rather than copied whole.
package library

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mholt/archives"

	"github.com/audiarr/audiarr/internal/logger"
	"github.com/audiarr/audiarr/internal/models"
)

// keepExtensions are the file types carried into the library. Everything
// else in a release (samples, screenshots, nfo) is left behind.
var keepExtensions = map[string]bool{
	".m4b":  true,
	".m4a":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".aac":  true,
	".opus": true,
	".epub": true,
	".mobi": true,
	".azw3": true,
	".pdf":  true,
	".cue":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Organizer moves completed downloads into the library tree.
type Organizer struct {
	libraryPath string
}

func NewOrganizer(libraryPath string) *Organizer {
	return &Organizer{libraryPath: libraryPath}
}

// TitleDir is the folder a work's files live in: Library/Author/Title.
// Cleanup deletes exactly this folder and nothing above it.
func (o *Organizer) TitleDir(work *models.Work) string {
	author := SanitizeFilename(work.Author)
	if author == "" {
		author = "Unknown Author"
	}
	title := SanitizeFilename(work.Title)
	if title == "" {
		return ""
	}
	return filepath.Join(o.libraryPath, author, title)
}

// Organize copies the usable files from a finished download into the
// work's title folder. The source may be a single audio file, a release
// directory, or an archive; archives are read in place, never extracted
// next to the download.
func (o *Organizer) Organize(srcPath string, work *models.Work) (string, error) {
	dest := o.TitleDir(work)
	if dest == "" {
		return "", fmt.Errorf("work %d has no usable title", work.ID)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dest, err)
	}

	// archives.FileSystem handles all three source shapes uniformly:
	// plain files, directories, and archive files.
	fsys, err := archives.FileSystem(context.Background(), srcPath, nil)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", srcPath, err)
	}

	copied := 0
	err = fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "." {
			name = filepath.Base(srcPath)
		}
		if !keepExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if err := copyOut(fsys, path, filepath.Join(dest, SanitizeFilename(name))); err != nil {
			return err
		}
		copied++
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("organizing %s: %w", srcPath, err)
	}
	if copied == 0 {
		return "", fmt.Errorf("no usable media files in %s", srcPath)
	}
	logger.Info().Str("src", srcPath).Str("dest", dest).Int("files", copied).Msg("organized download")
	return dest, nil
}

func copyOut(fsys fs.FS, path, dest string) error {
	in, err := fsys.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return err
	}
	return out.Close()
}

// SanitizeFilename strips the characters that are unsafe in paths on any
// of the filesystems the library might live on.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	replacer := strings.NewReplacer(
		"/", "-",
		"\\", "-",
		":", " -",
		"*", "",
		"?", "",
		"\"", "'",
		"<", "",
		">", "",
		"|", "-",
	)
	name = replacer.Replace(name)
	name = strings.Trim(name, ". ")
	return strings.Join(strings.Fields(name), " ")
}
