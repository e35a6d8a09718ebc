package update

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnmp/dnmp/pkg/install"
	"github.com/dnmp/dnmp/pkg/update"
)

type recordingInstaller struct {
	dirs []string
}

func (installer *recordingInstaller) Install(_ context.Context, _ string, dirs []string) error {
	installer.dirs = append(installer.dirs, dirs...)
	return nil
}

func tempWorkspace(t *testing.T) string {
	// Resolve symlinks so that paths compare equal on macOS.
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func write(t *testing.T, path, contents string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
}

func TestOptions(t *testing.T) {
	workspace := tempWorkspace(t)
	project := filepath.Join(workspace, "app")
	write(t, filepath.Join(project, "dnmp.yaml"),
		"local: [libs]\ninstallRoot: deps\ninstallCommand: [yarn, add]\n")

	cmd := updateCmd{local: []string{"../"}, save: true, dev: true}

	opts, err := cmd.options(project, []string{"foo"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(project, "libs")}, opts.LocalDirs)
	assert.Equal(t, "deps", opts.InstallRoot)
	assert.Equal(t, install.NPM{Command: []string{"yarn", "add"}}, opts.Installer)
	assert.Equal(t, []string{"foo"}, opts.Packages)
	assert.True(t, opts.Save)
	assert.True(t, opts.Dev)

	// An explicit --local overrides the config file.
	opts, err = cmd.options(project, nil, true)
	require.NoError(t, err)
	assert.Equal(t, []string{workspace}, opts.LocalDirs)
}

func TestOptionsDefaults(t *testing.T) {
	workspace := tempWorkspace(t)
	project := filepath.Join(workspace, "app")
	require.NoError(t, os.MkdirAll(project, 0755))

	opts, err := updateCmd{}.options(project, nil, false)
	require.NoError(t, err)
	assert.Equal(t, []string{workspace}, opts.LocalDirs)
	assert.Equal(t, "node_modules", opts.InstallRoot)
	assert.Equal(t, install.NPM{}, opts.Installer)
}

func TestRun(t *testing.T) {
	workspace := tempWorkspace(t)
	project := filepath.Join(workspace, "app")
	write(t, filepath.Join(project, "package.json"), `{"dependencies": {"foo": "^1.0.0"}}`)
	write(t, filepath.Join(workspace, "foo", "package.json"), `{"name": "foo", "version": "1.2.0"}`)
	write(t, filepath.Join(workspace, "foo", "index.js"), "module.exports = 1")

	installer := &recordingInstaller{}
	opts, err := updateCmd{save: true}.options(project, nil, false)
	require.NoError(t, err)
	opts.Installer = installer

	var out bytes.Buffer
	require.NoError(t, run(&out, opts))
	assert.Equal(t, []string{filepath.Join(workspace, "foo")}, installer.dirs)
	assert.Equal(t, "Updated: foo\nSaved version numbers to package.json.\n", out.String())

	contents, err := os.ReadFile(filepath.Join(project, "package.json"))
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"dependencies\": {\n    \"foo\": \"^1.2.0\"\n  }\n}\n", string(contents))
}

func TestRunNothingToDo(t *testing.T) {
	workspace := tempWorkspace(t)
	project := filepath.Join(workspace, "app")
	write(t, filepath.Join(project, "package.json"), `{"dependencies": {"bar": "^2.0.0"}}`)

	installer := &recordingInstaller{}
	var out bytes.Buffer
	err := run(&out, update.Options{
		ProjectDir: project,
		LocalDirs:  []string{workspace},
		Installer:  installer,
	})
	require.NoError(t, err)
	assert.Empty(t, installer.dirs)
	assert.Equal(t, "All local packages are up to date.\n", out.String())
}
