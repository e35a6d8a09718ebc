package config

import (
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/dnmp/dnmp/pkg/errors"
)

const (
	// ProjectConfigName is the name of the optional configuration file in the
	// root of the consuming project.
	ProjectConfigName = "dnmp.yaml"

	// InitialProjectConfigVersion is the first version of the project config.
	// Config files that do not specify a version default to this version.
	InitialProjectConfigVersion = "v1alpha1"

	// SupportedProjectConfigVersion is the supported version of the project
	// config of the current dnmp binary.
	SupportedProjectConfigVersion = "v1alpha1"

	// DefaultInstallRoot is where the package manager installs dependencies,
	// relative to the project.
	DefaultInstallRoot = "node_modules"
)

// DefaultLocalDirs are the directories searched for local packages if none
// are configured.
var DefaultLocalDirs = []string{"../"}

// Project contains the per-project settings. Any of them can be overridden
// from the command line.
type Project struct {
	Version string `json:"version,omitempty"`

	// Local are the directories that contain the local packages. Relative
	// paths are relative to the project.
	Local []string `json:"local,omitempty"`

	// InstallRoot is the directory the package manager installs into.
	InstallRoot string `json:"installRoot,omitempty"`

	// InstallCommand is the command that installs local packages. The
	// package directories are appended as arguments.
	InstallCommand []string `json:"installCommand,omitempty"`
}

func (p Project) getVersion() string {
	return p.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseProject parses the project config in `projectDir`. If the project
// doesn't have a config file, the defaults are returned.
func ParseProject(projectDir string) (Project, error) {
	path := filepath.Join(projectDir, ProjectConfigName)
	config := Project{Version: InitialProjectConfigVersion}
	if err := parseConfig(path, &config, SupportedProjectConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); !ok {
			return Project{}, errors.WithContext(err, "parse")
		}
		config = Project{Version: SupportedProjectConfigVersion}
	}

	if len(config.Local) == 0 {
		config.Local = DefaultLocalDirs
	}
	if config.InstallRoot == "" {
		config.InstallRoot = DefaultInstallRoot
	}
	return config, nil
}

// ResolveLocalDirs expands `~` and makes the directories absolute. Relative
// directories are relative to `projectDir`.
func ResolveLocalDirs(projectDir string, dirs []string) ([]string, error) {
	var resolved []string
	for _, dir := range dirs {
		expanded, err := homedirExpand(dir)
		if err != nil {
			return nil, errors.WithContext(err, "expand homedir")
		}

		if !filepath.IsAbs(expanded) {
			expanded = filepath.Join(projectDir, expanded)
		}

		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, errors.WithContext(err, "resolve path")
		}
		resolved = append(resolved, abs)
	}
	return resolved, nil
}
