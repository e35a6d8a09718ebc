package local

import (
	"path/filepath"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/dnmp/dnmp/pkg/errors"
	"github.com/dnmp/dnmp/pkg/manifest"
)

// maxConcurrentLoads bounds the number of package.json files read at once.
const maxConcurrentLoads = 16

// A Package is a package that's being developed on the user's machine.
type Package struct {
	// Path is the absolute path to the package's directory.
	Path string

	Manifest *manifest.Manifest
}

// Discover returns the packages that are immediate children of `roots`.
// Packages are returned in the order that the roots were given, and within a
// root in directory listing order. A directory reachable from multiple roots
// is only returned once, at its first position.
func Discover(fs afero.Fs, roots []string) ([]Package, error) {
	dirs, err := listDirs(fs, roots)
	if err != nil {
		return nil, err
	}

	// Load the manifests in parallel, but keep the results indexed by
	// discovery order so that the order doesn't depend on scheduling.
	loaded := make([]*manifest.Manifest, len(dirs))
	var g errgroup.Group
	g.SetLimit(maxConcurrentLoads)
	for i, dir := range dirs {
		i, dir := i, dir
		g.Go(func() error {
			m, err := manifest.Load(fs, dir)
			switch err.(type) {
			case nil:
				loaded[i] = m
			case errors.MissingManifest:
				// Most directories aren't packages.
			case errors.MalformedManifest:
				log.WithError(err).WithField("path", dir).Warn(
					"Ignoring local directory with an unparsable package.json")
			default:
				return errors.WithContext(err, "load manifest")
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pkgs []Package
	for i, m := range loaded {
		if m == nil {
			continue
		}
		pkgs = append(pkgs, Package{Path: dirs[i], Manifest: m})
	}
	return pkgs, nil
}

func listDirs(fs afero.Fs, roots []string) ([]string, error) {
	var dirs []string
	seen := map[string]struct{}{}
	for _, root := range roots {
		entries, err := afero.ReadDir(fs, root)
		if err != nil {
			return nil, errors.WithContext(err, "list local packages")
		}

		for _, entry := range entries {
			path, err := filepath.Abs(filepath.Join(root, entry.Name()))
			if err != nil {
				return nil, errors.WithContext(err, "resolve path")
			}

			// Stat rather than use the listing's FileInfo so that symlinks to
			// directories are followed.
			fi, err := fs.Stat(path)
			if err != nil {
				log.WithError(err).WithField("path", path).Debug("Skipping unreadable entry")
				continue
			}
			if !fi.IsDir() {
				continue
			}

			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			dirs = append(dirs, path)
		}
	}
	return dirs, nil
}

// Index memoizes the discovered packages for the duration of a single run.
type Index struct {
	fs    afero.Fs
	roots []string

	pkgs      []Package
	populated bool
}

// NewIndex returns an Index over `roots`.
func NewIndex(fs afero.Fs, roots []string) *Index {
	return &Index{fs: fs, roots: roots}
}

// Packages discovers the local packages on the first call, and returns the
// same result on subsequent calls.
func (idx *Index) Packages() ([]Package, error) {
	if idx.populated {
		return idx.pkgs, nil
	}

	pkgs, err := Discover(idx.fs, idx.roots)
	if err != nil {
		return nil, err
	}
	idx.pkgs = pkgs
	idx.populated = true
	return pkgs, nil
}
