package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/dnmp/dnmp/pkg/errors"
	"github.com/dnmp/dnmp/pkg/manifest"
)

// maxConcurrentStats bounds the number of installed files stat'd at once.
const maxConcurrentStats = 32

type fileState int

const (
	fileMatches fileState = iota
	fileMissing
	fileDiffers
)

// IsUpToDate returns whether the package installed at `installedDir` is the
// same as the source snapshot. When it isn't, the returned string describes
// the first difference that was found.
//
// The installed copy is stale if it's missing, if its version or runtime
// dependencies differ from the source, or if any source file is missing or
// has a different modification time in the installed copy.
func IsUpToDate(fs afero.Fs, src Snapshot, installedDir string) (bool, string, error) {
	fi, err := fs.Stat(installedDir)
	if os.IsNotExist(err) {
		return false, "not installed", nil
	}
	if err != nil {
		return false, "", errors.WithContext(err, "stat installed package")
	}
	if !fi.IsDir() {
		return false, "installed path is not a directory", nil
	}

	installed, err := manifest.Load(fs, installedDir)
	switch err.(type) {
	case nil:
	case errors.MissingManifest:
		return false, "installed copy has no package.json", nil
	case errors.MalformedManifest:
		return false, "installed package.json is malformed", nil
	default:
		return false, "", errors.WithContext(err, "load installed manifest")
	}

	if src.Manifest.Version != installed.Version {
		return false, fmt.Sprintf("version changed from %q to %q",
			installed.Version, src.Manifest.Version), nil
	}

	srcDeps, installedDeps := src.Manifest.DependencyMap(), installed.DependencyMap()
	if !reflect.DeepEqual(srcDeps, installedDeps) {
		return false, fmt.Sprintf("dependencies changed from %v to %v",
			installedDeps, srcDeps), nil
	}

	states, err := compareFiles(fs, src.Files, installedDir)
	if err != nil {
		return false, "", err
	}

	for i, state := range states {
		switch state {
		case fileMissing:
			return false, fmt.Sprintf("%s is missing from the installed copy", src.Files[i].Path), nil
		case fileDiffers:
			return false, fmt.Sprintf("%s was modified", src.Files[i].Path), nil
		}
	}
	return true, "", nil
}

// compareFiles compares each source file to its installed counterpart. The
// returned states are in the same order as `files`.
func compareFiles(fs afero.Fs, files []SourceFile, installedDir string) ([]fileState, error) {
	states := make([]fileState, len(files))
	var g errgroup.Group
	g.SetLimit(maxConcurrentStats)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			path := filepath.Join(installedDir, filepath.FromSlash(f.Path))
			fi, err := lstat(fs, path)
			if os.IsNotExist(err) {
				states[i] = fileMissing
				return nil
			}
			if err != nil {
				return errors.WithContext(err, fmt.Sprintf("stat %q", path))
			}

			if !f.FileAttributes.Equal(FileAttributes{ModTime: fi.ModTime()}) {
				states[i] = fileDiffers
			}
			return nil
		})
	}
	return states, g.Wait()
}

// lstat stats the path the same way afero.Walk does when snapshotting.
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(path)
}
