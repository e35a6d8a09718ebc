package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/dnmp/dnmp/pkg/errors"
)

// parseConfigErrTemplate is shown when a config file isn't valid. The yaml
// library doesn't say where in the file the problem is, so the parser's
// message is passed on as is.
const parseConfigErrTemplate = "Failed to parse %q.\n" +
	"The supported fields are `version`, `local`, `installRoot` and " +
	"`installCommand`. Check that no other fields are set, and that `local` " +
	"and `installCommand` are lists.\n\n" +
	"Parser error: %s"

// versioned is implemented by config files that carry a schema version.
type versioned interface {
	getVersion() string
}

type incompatibleVersionError struct {
	path, exp, actual string
}

func (err incompatibleVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err incompatibleVersionError) FriendlyMessage() string {
	return fmt.Sprintf("%q has version %q, but this version of dnmp "+
		"only understands %q.", err.path, err.actual, err.exp)
}

// parseConfig decodes the yaml file at `path` into `config`. The version is
// checked before unknown fields so that a newer file gets the more helpful
// version error.
func parseConfig(path string, config versioned, expVersion string) error {
	contents, err := afero.ReadFile(fs, path)
	switch {
	case os.IsNotExist(err):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "read")
	}

	if err := yaml.Unmarshal(contents, config); err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if actual := config.getVersion(); actual != expVersion {
		return incompatibleVersionError{path: path, exp: expVersion, actual: actual}
	}

	err = yaml.UnmarshalStrict(contents, config, yaml.DisallowUnknownFields)
	if err != nil {
		return errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}
	return nil
}
