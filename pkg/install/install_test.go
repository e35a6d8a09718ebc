package install

import (
	"context"
	"os"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallArg(t *testing.T) {
	tests := []struct {
		name    string
		project string
		dir     string
		exp     string
	}{
		{"Sibling", "/work/app", "/work/lib", "../lib"},
		{"Nested", "/work/app", "/work/app/packages/lib", "./packages/lib"},
		{"Dotted", "/work/app", "/work/app/.local/lib", "./.local/lib"},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			arg, err := installArg(test.project, test.dir)
			require.NoError(t, err)
			assert.Equal(t, test.exp, arg)
		})
	}
}

func TestInstall(t *testing.T) {
	var ran *exec.Cmd
	runCommand = func(cmd *exec.Cmd) error {
		ran = cmd
		return nil
	}
	defer func() {
		runCommand = func(cmd *exec.Cmd) error { return cmd.Run() }
	}()

	err := NPM{}.Install(context.Background(), "/work/app",
		[]string{"/work/foo", "/work/bar baz"})
	require.NoError(t, err)
	require.NotNil(t, ran)
	assert.Equal(t, []string{"npm", "install", "../foo", "../bar baz"}, ran.Args)
	assert.Equal(t, "/work/app", ran.Dir)
	assert.Equal(t, os.Stdout, ran.Stdout)
	assert.Equal(t, os.Stderr, ran.Stderr)

	err = NPM{Command: []string{"yarn", "add", "--dev"}}.Install(
		context.Background(), "/work/app", []string{"/work/foo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"yarn", "add", "--dev", "../foo"}, ran.Args)
}

func TestInstallFailure(t *testing.T) {
	err := NPM{Command: []string{"false"}}.Install(context.Background(), os.TempDir(), nil)
	assert.Error(t, err)
}

func TestQuote(t *testing.T) {
	assert.Equal(t, `"npm" "install" "../a b"`, quote([]string{"npm", "install", "../a b"}))
}
