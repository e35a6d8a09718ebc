package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dnmp/dnmp/cmd/update"
	"github.com/dnmp/dnmp/cmd/util"
	"github.com/dnmp/dnmp/pkg/errors"
	"github.com/dnmp/dnmp/pkg/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "DNMP_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	if err := New().Execute(); err != nil {
		util.HandleFatalError(err)
	}
}

// New creates the root `dnmp` command.
func New() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "dnmp <command> [packages...]",
		Short:   "Keep locally developed npm packages installed and up to date",
		Version: version.Version,

		// Only the subcommands do any work. Anything else is reported as an
		// unknown command.
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.SetOut(cmd.ErrOrStderr())
				_ = cmd.Usage()
				return errors.New("a command is required")
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "The command %q is unknown\n", args[0])
			return nil
		},
		SilenceUsage: true,

		// HandleFatalError prints the error, so we silence errors here to
		// avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(update.New())
	return rootCmd
}
