package sync

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/dnmp/dnmp/pkg/errors"
	"github.com/dnmp/dnmp/pkg/manifest"
)

// FileAttributes contains the metadata used to compare whether an installed
// file is the same as its source.
type FileAttributes struct {
	// ModTime is the time of the last file modification.
	ModTime time.Time
}

// Equal returns whether two files are equal (i.e. whether a reinstall is
// unnecessary). Modification times are compared at millisecond resolution.
// Any difference counts, including the other file being newer.
func (f FileAttributes) Equal(otherFile FileAttributes) bool {
	return f.ModTime.Truncate(time.Millisecond).Equal(otherFile.ModTime.Truncate(time.Millisecond))
}

// A SourceFile is a file that npm would pack when publishing a local package.
type SourceFile struct {
	// Path is the slash-separated path of the file relative to the package
	// directory.
	Path string

	FileAttributes
}

// Snapshot is the publishable contents of a local package.
type Snapshot struct {
	// Path is the package directory.
	Path string

	// Files is sorted by path. It never contains package.json or the ignore
	// files, since they're compared separately or not at all.
	Files []SourceFile

	Manifest *manifest.Manifest
}

// notSnapshotted are files that npm publishes (or consults) but that are
// excluded from the file comparison.
var notSnapshotted = map[string]struct{}{
	manifest.FileName: {},
	gitIgnoreFile:     {},
	npmIgnoreFile:     {},
}

// SnapshotPackage returns the files that npm would include when publishing
// the package in `dir`, along with their modification times.
func SnapshotPackage(fs afero.Fs, dir string) (Snapshot, error) {
	snapshot, err := snapshotPackage(fs, dir)
	if err != nil {
		return Snapshot{}, errors.SnapshotError{Path: dir, Err: err}
	}
	return snapshot, nil
}

func snapshotPackage(fs afero.Fs, dir string) (Snapshot, error) {
	m, err := manifest.Load(fs, dir)
	if err != nil {
		return Snapshot{}, err
	}

	allowed, err := newAllowlist(m.Files)
	if err != nil {
		return Snapshot{}, err
	}

	var rules ignoreRules
	var files []SourceFile
	err = afero.Walk(fs, dir, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return errors.WithContext(err, "normalize path")
		}
		if strings.HasPrefix(relPath, "..") {
			return errors.NewFriendlyError("%q escapes the package directory", path)
		}

		var relParts []string
		if relPath != "." {
			relParts = strings.Split(filepath.ToSlash(relPath), "/")
			if rules.ignored(relParts, fi.IsDir()) {
				if fi.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if fi.IsDir() {
			return rules.load(fs, path, relParts)
		}

		if _, ok := notSnapshotted[fi.Name()]; ok || !allowed.allows(relParts) {
			return nil
		}

		files = append(files, SourceFile{
			Path:           strings.Join(relParts, "/"),
			FileAttributes: FileAttributes{ModTime: fi.ModTime()},
		})
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return Snapshot{Path: dir, Files: files, Manifest: m}, nil
}
