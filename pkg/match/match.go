package match

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	log "github.com/sirupsen/logrus"

	"github.com/dnmp/dnmp/pkg/local"
	"github.com/dnmp/dnmp/pkg/manifest"
)

// A Declaration is a dependency declared by the target project.
type Declaration struct {
	Name  string
	Range string
	Dev   bool
}

// A Match pairs a declared dependency with the local package that will
// satisfy it.
type Match struct {
	Declaration
	Package local.Package
}

// Declarations returns the dependencies declared by `target`. The
// devDependencies are only included if `includeDev` is set, and are listed
// after the runtime dependencies. If `names` is non-empty, only dependencies
// with one of those names are returned.
func Declarations(target *manifest.Manifest, names []string, includeDev bool) []Declaration {
	allowed := map[string]bool{}
	for _, name := range names {
		allowed[name] = true
	}

	var decls []Declaration
	add := func(deps *manifest.Dependencies, dev bool) {
		if deps == nil {
			return
		}
		for pair := deps.Oldest(); pair != nil; pair = pair.Next() {
			if len(allowed) != 0 && !allowed[pair.Key] {
				continue
			}
			decls = append(decls, Declaration{Name: pair.Key, Range: pair.Value, Dev: dev})
		}
	}

	add(target.Dependencies, false)
	if includeDev {
		add(target.DevDependencies, true)
	}
	return decls
}

// Find returns the first package in `pkgs` whose name matches the
// declaration, and whose version satisfies the declared range.
func Find(decl Declaration, pkgs []local.Package) (local.Package, bool) {
	rng := normalizeRange(decl.Range)
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		log.WithError(err).WithField("dependency", decl.Name).Debug(
			"Declared range isn't a semver range. It can't be satisfied by a local package.")
		return local.Package{}, false
	}

	for _, pkg := range pkgs {
		if pkg.Manifest.Name != decl.Name {
			continue
		}

		version, err := parseVersion(pkg.Manifest.Version)
		if err != nil {
			log.WithError(err).WithField("path", pkg.Path).Debug(
				"Local package has an invalid version")
			continue
		}

		if constraint.Check(version) && prereleaseAllowed(rng, version) {
			return pkg, true
		}
	}
	return local.Package{}, false
}

// Resolve returns the local packages that satisfy the dependencies of
// `target`. Declarations without a matching local package are omitted.
func Resolve(target *manifest.Manifest, pkgs []local.Package, names []string,
	includeDev bool) []Match {

	var matches []Match
	for _, decl := range Declarations(target, names, includeDev) {
		pkg, ok := Find(decl, pkgs)
		if !ok {
			log.WithField("dependency", decl.Name).Debug("No local package satisfies dependency")
			continue
		}
		matches = append(matches, Match{Declaration: decl, Package: pkg})
	}
	return matches
}

// normalizeRange trims `rng`. An empty range is equivalent to "*".
func normalizeRange(rng string) string {
	rng = strings.TrimSpace(rng)
	if rng == "" {
		return "*"
	}
	return rng
}

// parseVersion parses a full major.minor.patch version. Partial versions such
// as "1.2" are invalid. A single leading "=" or "v" is allowed, as npm does.
func parseVersion(v string) (*semver.Version, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "=")
	return semver.StrictNewVersion(strings.TrimPrefix(v, "v"))
}

var prereleaseComparator = regexp.MustCompile(`(\d+\.\d+\.\d+)-[0-9A-Za-z]`)

// prereleaseAllowed reports whether `version` may satisfy `rng` at all. A
// prerelease only satisfies ranges that name a prerelease of the same
// major.minor.patch, so `^1.2.3-beta.2` admits 1.2.3-beta.3 but not
// 1.2.4-beta.1.
func prereleaseAllowed(rng string, version *semver.Version) bool {
	if version.Prerelease() == "" {
		return true
	}

	tuple := fmt.Sprintf("%d.%d.%d", version.Major(), version.Minor(), version.Patch())
	for _, match := range prereleaseComparator.FindAllStringSubmatch(rng, -1) {
		if match[1] == tuple {
			return true
		}
	}
	return false
}
