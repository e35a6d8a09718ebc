package manifest

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dnmp/dnmp/pkg/errors"
)

// FileName is the name of the package descriptor within a package directory.
const FileName = "package.json"

// Group identifies one of the dependency mappings in a manifest.
type Group string

const (
	// Runtime is the `dependencies` mapping.
	Runtime Group = "dependencies"

	// Dev is the `devDependencies` mapping.
	Dev Group = "devDependencies"
)

// Dependencies maps dependency names to version ranges, in the order they
// appear in the file.
type Dependencies = orderedmap.OrderedMap[string, string]

// Manifest is a parsed package.json.
type Manifest struct {
	Name            string
	Version         string
	Dependencies    *Dependencies
	DevDependencies *Dependencies

	// Files is the publish allowlist. It's empty if the package doesn't
	// restrict what gets published.
	Files []string

	// Only populated and consumed by dnmp.
	path  string
	raw   *orderedmap.OrderedMap[string, json.RawMessage]
	dirty map[Group]bool
}

// GetPath returns the path the manifest was loaded from.
func (m *Manifest) GetPath() string {
	return m.path
}

// Load reads the package.json in `dir`.
func Load(fs afero.Fs, dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.MissingManifest{Path: path}
		}
		return nil, errors.WithContext(err, "read file")
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.MalformedManifest{Path: path, Err: err}
	}
	m.path = path
	return m, nil
}

// errNotAnObject is returned for manifests whose top-level value isn't an
// object, such as `null` or `[]`.
var errNotAnObject = errors.New("package.json must be a JSON object")

// Parse parses the contents of a package.json.
func Parse(data []byte) (*Manifest, error) {
	if trimmed := bytes.TrimLeft(data, " \t\r\n"); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errNotAnObject
	}

	raw := orderedmap.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, raw); err != nil {
		return nil, err
	}

	m := &Manifest{raw: raw, dirty: map[Group]bool{}}
	fields := []struct {
		key string
		dst interface{}
	}{
		{"name", &m.Name},
		{"version", &m.Version},
		{string(Runtime), &m.Dependencies},
		{string(Dev), &m.DevDependencies},
		{"files", &m.Files},
	}
	for _, field := range fields {
		value, ok := raw.Get(field.key)
		if !ok {
			continue
		}
		if err := json.Unmarshal(value, field.dst); err != nil {
			return nil, errors.WithContext(err, field.key)
		}
	}
	return m, nil
}

// DependencyMap returns the runtime dependencies as a plain map. It's never
// nil.
func (m *Manifest) DependencyMap() map[string]string {
	deps := map[string]string{}
	if m.Dependencies == nil {
		return deps
	}
	for pair := m.Dependencies.Oldest(); pair != nil; pair = pair.Next() {
		deps[pair.Key] = pair.Value
	}
	return deps
}

func (m *Manifest) group(g Group) *Dependencies {
	if g == Dev {
		return m.DevDependencies
	}
	return m.Dependencies
}

// SetDependency sets the range of an existing dependency. It never adds a
// dependency that isn't already declared, and reports whether the stored
// range changed.
func (m *Manifest) SetDependency(g Group, name, rng string) bool {
	deps := m.group(g)
	if deps == nil {
		return false
	}

	curr, ok := deps.Get(name)
	if !ok || curr == "" || curr == rng {
		return false
	}

	deps.Set(name, rng)
	if m.dirty == nil {
		m.dirty = map[Group]bool{}
	}
	m.dirty[g] = true
	return true
}

// Modified returns whether SetDependency changed anything since the manifest
// was loaded or last saved.
func (m *Manifest) Modified() bool {
	for _, dirty := range m.dirty {
		if dirty {
			return true
		}
	}
	return false
}

// Marshal serializes the manifest with two-space indentation and a trailing
// newline. Keys keep the order they were read in.
func (m *Manifest) Marshal() ([]byte, error) {
	raw := m.raw
	if raw == nil {
		raw = orderedmap.New[string, json.RawMessage]()
	}

	for _, g := range []Group{Runtime, Dev} {
		if !m.dirty[g] {
			continue
		}
		encoded, err := encodeDependencies(m.group(g))
		if err != nil {
			return nil, errors.WithContext(err, string(g))
		}
		raw.Set(string(g), encoded)
	}

	var compact bytes.Buffer
	compact.WriteByte('{')
	first := true
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		if !first {
			compact.WriteByte(',')
		}
		first = false

		key, err := encodeString(pair.Key)
		if err != nil {
			return nil, err
		}
		compact.Write(key)
		compact.WriteByte(':')
		compact.Write(pair.Value)
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, errors.WithContext(err, "indent")
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// Save overwrites the file the manifest was loaded from.
func Save(fs afero.Fs, m *Manifest) error {
	data, err := m.Marshal()
	if err != nil {
		return errors.WithContext(err, "marshal")
	}

	if err := afero.WriteFile(fs, m.path, data, 0644); err != nil {
		return errors.WithContext(err, "write")
	}
	m.dirty = map[Group]bool{}
	return nil
}

func encodeDependencies(deps *Dependencies) (json.RawMessage, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for pair := deps.Oldest(); pair != nil; pair = pair.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		key, err := encodeString(pair.Key)
		if err != nil {
			return nil, err
		}
		value, err := encodeString(pair.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeString quotes `s` without escaping HTML characters, matching how
// npm writes package.json.
func encodeString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Cache memoizes the target project's manifest for the duration of a single
// run.
type Cache struct {
	fs  afero.Fs
	dir string

	manifest *Manifest
}

// NewCache returns a Cache for the manifest in `dir`.
func NewCache(fs afero.Fs, dir string) *Cache {
	return &Cache{fs: fs, dir: dir}
}

// Target loads the manifest on the first call, and returns the same value on
// subsequent calls.
func (c *Cache) Target() (*Manifest, error) {
	if c.manifest != nil {
		return c.manifest, nil
	}

	m, err := Load(c.fs, c.dir)
	if err != nil {
		return nil, err
	}
	c.manifest = m
	return m, nil
}
