package install

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dnmp/dnmp/pkg/errors"
)

// DefaultCommand is the command used to install packages if none is
// configured. The package directories are appended to it.
var DefaultCommand = []string{"npm", "install"}

// Installer installs local package directories into a project.
type Installer interface {
	Install(ctx context.Context, projectDir string, packageDirs []string) error
}

// NPM installs packages by running the package manager as a child process.
type NPM struct {
	// Command is the installation command. Defaults to DefaultCommand.
	Command []string
}

// Mocked out for unit testing.
var runCommand = func(cmd *exec.Cmd) error {
	return cmd.Run()
}

// Install runs the installation command in `projectDir`, with one argument
// per package directory. The child process shares our stdio so that the
// user sees the package manager's progress. It blocks until the child exits.
func (npm NPM) Install(ctx context.Context, projectDir string, packageDirs []string) error {
	command := npm.Command
	if len(command) == 0 {
		command = DefaultCommand
	}

	args := append([]string{}, command[1:]...)
	for _, dir := range packageDirs {
		arg, err := installArg(projectDir, dir)
		if err != nil {
			return errors.WithContext(err, "resolve install path")
		}
		args = append(args, arg)
	}

	log.WithField("command", quote(append([]string{command[0]}, args...))).Debug("Running installer")

	cmd := exec.CommandContext(ctx, command[0], args...)
	cmd.Dir = projectDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := runCommand(cmd); err != nil {
		return errors.WithContext(err, strings.Join(command, " "))
	}
	return nil
}

// installArg returns the path to `dir` relative to the project. The path
// always starts with `.` or `/` so that the package manager doesn't mistake it
// for a registry package or a GitHub shorthand.
func installArg(projectDir, dir string) (string, error) {
	absProject, err := filepath.Abs(projectDir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absProject, dir)
	if err != nil {
		// E.g. the package is on a different Windows volume.
		return dir, nil
	}

	rel = filepath.ToSlash(rel)
	if !strings.HasPrefix(rel, ".") && !strings.HasPrefix(rel, "/") {
		rel = "./" + rel
	}
	return rel, nil
}

func quote(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = `"` + arg + `"`
	}
	return strings.Join(quoted, " ")
}
