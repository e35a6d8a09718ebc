package sync

import (
	"bufio"
	"bytes"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"github.com/spf13/afero"
	"gopkg.in/src-d/go-git.v4/plumbing/format/gitignore"

	"github.com/dnmp/dnmp/pkg/errors"
)

const (
	npmIgnoreFile = ".npmignore"
	gitIgnoreFile = ".gitignore"
)

// alwaysIgnored are the names npm never packs, regardless of the ignore
// files.
var alwaysIgnored = compileGlobs(
	".git",
	"CVS",
	".svn",
	".hg",
	".lock-wscript",
	".wafpickle-[0-9]*",
	".*.swp",
	".DS_Store",
	"._*",
	"npm-debug.log",
	".npmrc",
	"config.gypi",
	"*.orig",
	"node_modules",
)

// alwaysIncluded are the names npm always packs from the package root, even
// if they're ignored or left out of the `files` allowlist. They're matched
// against the lowercased name.
var alwaysIncluded = compileGlobs(
	"{readme,license,licence}",
	"{readme,license,licence}.*",
)

func compileGlobs(patterns ...string) []glob.Glob {
	var globs []glob.Glob
	for _, pattern := range patterns {
		globs = append(globs, glob.MustCompile(pattern, '/'))
	}
	return globs
}

func matchesAny(globs []glob.Glob, s string) bool {
	for _, g := range globs {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// ignoreRules accumulates the ignore patterns found while walking a package.
// Patterns are scoped to the directory whose ignore file defined them, and
// patterns added later take precedence. Since directories are walked
// parent-first, rules from deeper directories override shallower ones.
type ignoreRules struct {
	patterns []gitignore.Pattern
}

// load adds the rules defined in `dir`, which is `relDir` relative to the
// package root. The .npmignore takes the place of the .gitignore if both
// exist.
func (rules *ignoreRules) load(fs afero.Fs, dir string, relDir []string) error {
	for _, name := range []string{npmIgnoreFile, gitIgnoreFile} {
		contents, err := afero.ReadFile(fs, filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return errors.WithContext(err, "read "+name)
		}

		rules.add(contents, relDir)
		return nil
	}
	return nil
}

func (rules *ignoreRules) add(contents []byte, domain []string) {
	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules.patterns = append(rules.patterns, gitignore.ParsePattern(line, domain))
	}
}

// ignored returns whether the path, given as its components relative to the
// package root, is excluded.
func (rules *ignoreRules) ignored(relPath []string, isDir bool) bool {
	if len(relPath) == 1 && !isDir && matchesAny(alwaysIncluded, strings.ToLower(relPath[0])) {
		return false
	}
	if matchesAny(alwaysIgnored, relPath[len(relPath)-1]) {
		return true
	}
	return gitignore.NewMatcher(rules.patterns).Match(relPath, isDir)
}

// allowlist implements the `files` field of package.json. Entries without a
// slash match a file or directory with that name anywhere in the package.
// Entries with a slash are matched against the full path from the package
// root. A file is allowed if it, or one of its parent directories, matches.
type allowlist struct {
	byName []glob.Glob
	byPath []glob.Glob
}

func newAllowlist(entries []string) (*allowlist, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	var list allowlist
	for _, entry := range entries {
		entry = strings.TrimPrefix(filepath.ToSlash(entry), "./")
		entry = strings.Trim(entry, "/")
		if entry == "" {
			continue
		}

		g, err := glob.Compile(entry, '/')
		if err != nil {
			return nil, errors.WithContext(err, "parse files entry")
		}
		if strings.Contains(entry, "/") {
			list.byPath = append(list.byPath, g)
		} else {
			list.byName = append(list.byName, g)
		}
	}
	return &list, nil
}

func (list *allowlist) allows(relPath []string) bool {
	if list == nil {
		return true
	}

	if len(relPath) == 1 && matchesAny(alwaysIncluded, strings.ToLower(relPath[0])) {
		return true
	}

	for i := range relPath {
		if matchesAny(list.byName, relPath[i]) ||
			matchesAny(list.byPath, path.Join(relPath[:i+1]...)) {
			return true
		}
	}
	return false
}
