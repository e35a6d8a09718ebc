package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dnmp/dnmp/cmd/util"
	"github.com/dnmp/dnmp/pkg/config"
	"github.com/dnmp/dnmp/pkg/errors"
	"github.com/dnmp/dnmp/pkg/install"
	"github.com/dnmp/dnmp/pkg/update"
)

type updateCmd struct {
	local   []string
	save    bool
	dev     bool
	verbose bool
}

// New creates a new `update` command.
func New() *cobra.Command {
	var cmd updateCmd
	cobraCmd := &cobra.Command{
		Use:   "update [packages...]",
		Short: "Update all (or listed) packages",
		Long: "Reinstall the dependencies of the project in the current directory " +
			"that are developed locally, if the installed copies are out of date " +
			"with the local sources.\n\n" +
			"If package names are given, only those dependencies are considered.",
		Run: func(cobraCmd *cobra.Command, args []string) {
			if cmd.verbose {
				log.SetLevel(log.DebugLevel)
			}

			projectDir, err := os.Getwd()
			if err != nil {
				util.HandleFatalError(errors.WithContext(err, "get working directory"))
			}

			opts, err := cmd.options(projectDir, args, cobraCmd.Flags().Changed("local"))
			if err != nil {
				util.HandleFatalError(err)
			}

			if err := run(os.Stdout, opts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}

	cobraCmd.Flags().StringArrayVarP(&cmd.local, "local", "l", config.DefaultLocalDirs,
		"Directory containing your local packages")
	cobraCmd.Flags().BoolVarP(&cmd.save, "save", "S", false,
		"Save version numbers in package.json")
	cobraCmd.Flags().BoolVar(&cmd.dev, "dev", false,
		"Include devDependencies packages")
	cobraCmd.Flags().BoolVarP(&cmd.verbose, "verbose", "v", false,
		"Make the output more verbose")
	return cobraCmd
}

// options merges the command line with the project's config file. Flags that
// were explicitly set take precedence.
func (cmd updateCmd) options(projectDir string, packages []string, localChanged bool) (
	update.Options, error) {

	projectConfig, err := config.ParseProject(projectDir)
	if err != nil {
		return update.Options{}, errors.WithContext(err, "parse project config")
	}

	localDirs := projectConfig.Local
	if localChanged {
		localDirs = cmd.local
	}

	resolved, err := config.ResolveLocalDirs(projectDir, localDirs)
	if err != nil {
		return update.Options{}, errors.WithContext(err, "resolve local dirs")
	}

	return update.Options{
		ProjectDir:  projectDir,
		LocalDirs:   resolved,
		Packages:    packages,
		Dev:         cmd.dev,
		Save:        cmd.save,
		InstallRoot: projectConfig.InstallRoot,
		Installer:   install.NPM{Command: projectConfig.InstallCommand},
	}, nil
}

func run(out io.Writer, opts update.Options) error {
	result, err := update.Run(context.Background(), opts)
	if err != nil {
		return err
	}

	if len(result.Installed) == 0 {
		fmt.Fprintln(out, "All local packages are up to date.")
		return nil
	}

	var names []string
	for _, m := range result.Installed {
		names = append(names, m.Name)
	}
	fmt.Fprintf(out, "Updated: %s\n", strings.Join(names, ", "))
	if result.Saved {
		fmt.Fprintln(out, "Saved version numbers to package.json.")
	}
	return nil
}
