package update

import (
	"context"
	"path/filepath"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/dnmp/dnmp/pkg/config"
	"github.com/dnmp/dnmp/pkg/errors"
	"github.com/dnmp/dnmp/pkg/install"
	"github.com/dnmp/dnmp/pkg/local"
	"github.com/dnmp/dnmp/pkg/manifest"
	"github.com/dnmp/dnmp/pkg/match"
	"github.com/dnmp/dnmp/pkg/sync"
)

// Options configures a single update run.
type Options struct {
	// ProjectDir is the directory of the consuming project.
	ProjectDir string

	// LocalDirs are the directories whose children are local packages.
	LocalDirs []string

	// Packages restricts the update to the dependencies with these names. If
	// it's empty, all dependencies are considered.
	Packages []string

	// Dev includes the devDependencies.
	Dev bool

	// Save rewrites the version ranges in the project's package.json to match
	// the installed packages.
	Save bool

	// InstallRoot is the directory that packages are installed into,
	// relative to ProjectDir.
	InstallRoot string

	Installer install.Installer
	Fs        afero.Fs
	Clock     clockwork.Clock
}

// Result describes what an update run did.
type Result struct {
	// Installed are the stale packages that were reinstalled.
	Installed []match.Match

	// Saved is whether the project's package.json was rewritten.
	Saved bool
}

// run holds the state that's shared by the steps of a single update. The
// target manifest and local package index are read at most once.
type run struct {
	Options

	target *manifest.Cache
	index  *local.Index
}

// Run reinstalls the local packages whose installed copies are out of date.
func Run(ctx context.Context, opts Options) (Result, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Installer == nil {
		opts.Installer = install.NPM{}
	}
	if opts.InstallRoot == "" {
		opts.InstallRoot = config.DefaultInstallRoot
	}
	if len(opts.LocalDirs) == 0 {
		dirs, err := config.ResolveLocalDirs(opts.ProjectDir, config.DefaultLocalDirs)
		if err != nil {
			return Result{}, errors.WithContext(err, "resolve local dirs")
		}
		opts.LocalDirs = dirs
	}

	r := run{
		Options: opts,
		target:  manifest.NewCache(opts.Fs, opts.ProjectDir),
		index:   local.NewIndex(opts.Fs, opts.LocalDirs),
	}
	return r.update(ctx)
}

func (r *run) update(ctx context.Context) (Result, error) {
	matches, err := r.localDependencies()
	if err != nil {
		return Result{}, errors.WithContext(err, "resolve local dependencies")
	}

	stale, err := r.outdatedDependencies(matches)
	if err != nil {
		return Result{}, errors.WithContext(err, "check installed packages")
	}

	if len(stale) == 0 {
		log.Debug("All local dependencies are up to date")
		return Result{}, nil
	}

	if err := r.install(ctx, stale); err != nil {
		return Result{}, err
	}

	result := Result{Installed: stale}
	if r.Save {
		result.Saved, err = r.saveVersionNumbers(stale)
		if err != nil {
			return result, errors.WithContext(err, "save version numbers")
		}
	}
	return result, nil
}

func (r *run) localDependencies() ([]match.Match, error) {
	target, err := r.target.Target()
	if err != nil {
		return nil, err
	}

	pkgs, err := r.index.Packages()
	if err != nil {
		return nil, err
	}
	return match.Resolve(target, pkgs, r.Packages, r.Dev), nil
}

func (r *run) outdatedDependencies(matches []match.Match) ([]match.Match, error) {
	var stale []match.Match
	for _, m := range matches {
		snapshot, err := sync.SnapshotPackage(r.Fs, m.Package.Path)
		if err != nil {
			return nil, err
		}

		installedDir := filepath.Join(r.ProjectDir, r.InstallRoot, m.Package.Manifest.Name)
		upToDate, reason, err := sync.IsUpToDate(r.Fs, snapshot, installedDir)
		if err != nil {
			return nil, errors.WithContext(err, m.Name)
		}

		logger := log.WithField("package", m.Name)
		if upToDate {
			logger.Debug("Installed package is up to date")
			continue
		}
		logger.WithField("reason", reason).Debug("Installed package is out of date")
		stale = append(stale, m)
	}
	return stale, nil
}

func (r *run) install(ctx context.Context, stale []match.Match) error {
	var dirs []string
	for _, m := range stale {
		dirs = append(dirs, m.Package.Path)
	}

	start := r.Clock.Now()
	if err := r.Installer.Install(ctx, r.ProjectDir, dirs); err != nil {
		return errors.InstallFailure{Err: err}
	}
	log.WithField("duration", r.Clock.Now().Sub(start)).Debug("Installed local packages")
	return nil
}

// saveVersionNumbers pins the dependencies that were just installed to the
// installed versions. Dependencies are only updated if they're already
// declared. The manifest is only written if a range actually changed.
func (r *run) saveVersionNumbers(installed []match.Match) (bool, error) {
	target, err := r.target.Target()
	if err != nil {
		return false, err
	}

	for _, m := range installed {
		pin := "^" + m.Package.Manifest.Version
		name := m.Package.Manifest.Name
		target.SetDependency(manifest.Runtime, name, pin)
		if r.Dev {
			target.SetDependency(manifest.Dev, name, pin)
		}
	}

	if !target.Modified() {
		return false, nil
	}

	if err := manifest.Save(r.Fs, target); err != nil {
		return false, err
	}
	return true, nil
}
