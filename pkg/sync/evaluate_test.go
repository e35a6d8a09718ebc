package sync

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const srcManifest = `{"name": "foo", "version": "1.2.0", "dependencies": {"a": "^1.0.0", "b": "^2.0.0"}}`

// installedCopy returns the files of an installed copy that's up to date with
// the source package written by writeSource.
func installedCopy() []mockFile {
	return []mockFile{
		{path: "/project/node_modules/foo/package.json",
			contents: `{"version": "1.2.0", "name": "foo", "dependencies": {"b": "^2.0.0", "a": "^1.0.0"}, "_resolved": "file:../foo"}`},
		{path: "/project/node_modules/foo/index.js"},
		{path: "/project/node_modules/foo/lib/util.js"},
	}
}

func writeSource(t *testing.T, fs afero.Fs) Snapshot {
	writeFiles(t, fs,
		mockFile{path: "/dev/foo/package.json", contents: srcManifest},
		mockFile{path: "/dev/foo/index.js"},
		mockFile{path: "/dev/foo/lib/util.js"},
	)
	snapshot, err := SnapshotPackage(fs, "/dev/foo")
	require.NoError(t, err)
	return snapshot
}

func TestIsUpToDate(t *testing.T) {
	tests := []struct {
		name      string
		installed func([]mockFile) []mockFile
		exp       bool
		expReason string
	}{
		{
			name:      "UpToDate",
			installed: func(files []mockFile) []mockFile { return files },
			exp:       true,
		},
		{
			name:      "NotInstalled",
			installed: func([]mockFile) []mockFile { return nil },
			expReason: "not installed",
		},
		{
			name: "NoManifest",
			installed: func(files []mockFile) []mockFile {
				return files[1:]
			},
			expReason: "installed copy has no package.json",
		},
		{
			name: "MalformedManifest",
			installed: func(files []mockFile) []mockFile {
				files[0].contents = "{"
				return files
			},
			expReason: "installed package.json is malformed",
		},
		{
			name: "VersionChanged",
			installed: func(files []mockFile) []mockFile {
				files[0].contents = `{"name": "foo", "version": "1.1.0", "dependencies": {"a": "^1.0.0", "b": "^2.0.0"}}`
				return files
			},
			expReason: `version changed from "1.1.0" to "1.2.0"`,
		},
		{
			name: "DependencyRemoved",
			installed: func(files []mockFile) []mockFile {
				files[0].contents = `{"name": "foo", "version": "1.2.0", "dependencies": {"a": "^1.0.0"}}`
				return files
			},
			expReason: "dependencies changed",
		},
		{
			name: "DependencyRangeChanged",
			installed: func(files []mockFile) []mockFile {
				files[0].contents = `{"name": "foo", "version": "1.2.0", "dependencies": {"a": "^1.0.0", "b": "^2.1.0"}}`
				return files
			},
			expReason: "dependencies changed",
		},
		{
			name: "FileMissing",
			installed: func(files []mockFile) []mockFile {
				return files[:2]
			},
			expReason: "lib/util.js is missing from the installed copy",
		},
		{
			name: "SourceNewer",
			installed: func(files []mockFile) []mockFile {
				files[2].modTime = baseTime.Add(-time.Second)
				return files
			},
			expReason: "lib/util.js was modified",
		},
		{
			name: "InstalledNewer",
			installed: func(files []mockFile) []mockFile {
				files[1].modTime = baseTime.Add(time.Second)
				return files
			},
			expReason: "index.js was modified",
		},
		{
			name: "SubMillisecondDifference",
			installed: func(files []mockFile) []mockFile {
				files[1].modTime = baseTime.Add(100 * time.Microsecond)
				return files
			},
			exp: true,
		},
		{
			name: "ExtraInstalledFile",
			installed: func(files []mockFile) []mockFile {
				return append(files, mockFile{path: "/project/node_modules/foo/extra.js"})
			},
			exp: true,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			src := writeSource(t, fs)
			writeFiles(t, fs, test.installed(installedCopy())...)

			upToDate, reason, err := IsUpToDate(fs, src, "/project/node_modules/foo")
			require.NoError(t, err)
			assert.Equal(t, test.exp, upToDate)
			assert.Contains(t, reason, test.expReason)

			// The verdict is a pure function of its inputs.
			again, againReason, err := IsUpToDate(fs, src, "/project/node_modules/foo")
			require.NoError(t, err)
			assert.Equal(t, upToDate, again)
			assert.Equal(t, reason, againReason)
		})
	}
}

func TestIsUpToDateReportsFirstDifference(t *testing.T) {
	fs := afero.NewMemMapFs()
	var srcFiles, installedFiles []mockFile
	srcFiles = append(srcFiles, mockFile{path: "/dev/foo/package.json", contents: srcManifest})
	installedFiles = append(installedFiles, installedCopy()[0])
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		srcFiles = append(srcFiles, mockFile{path: "/dev/foo/" + name + ".js"})
		installedFiles = append(installedFiles, mockFile{
			path:    "/project/node_modules/foo/" + name + ".js",
			modTime: baseTime.Add(time.Minute),
		})
	}
	writeFiles(t, fs, srcFiles...)
	writeFiles(t, fs, installedFiles...)

	src, err := SnapshotPackage(fs, "/dev/foo")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		upToDate, reason, err := IsUpToDate(fs, src, "/project/node_modules/foo")
		require.NoError(t, err)
		assert.False(t, upToDate)
		assert.Equal(t, "a.js was modified", reason)
	}
}

func TestFileAttributesEqual(t *testing.T) {
	a := FileAttributes{ModTime: baseTime}
	assert.True(t, a.Equal(FileAttributes{ModTime: baseTime.Add(999 * time.Microsecond)}))
	assert.False(t, a.Equal(FileAttributes{ModTime: baseTime.Add(time.Millisecond)}))
	assert.False(t, a.Equal(FileAttributes{ModTime: baseTime.Add(-time.Millisecond)}))
}
