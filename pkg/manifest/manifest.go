// Package manifest loads and persists per-package checksum
// manifests (.cargo-checksum.json files).
package manifest

import (
	"errors"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// ErrParse marks manifest content that is not valid JSON or does
// not match the manifest schema.
var ErrParse = errors.New("malformed checksum manifest")

// Manifest is one package's checksum manifest: a mapping from
// path-within-package to content digest, plus an opaque package
// identifier. Unknown top-level fields survive a load/persist
// round trip untouched.
type Manifest struct {
	Files   map[string]string
	Package *string

	pkgRaw json.RawMessage
	extra  map[string]json.RawMessage
	origin string
}

// New returns an empty manifest that Persist will write to path.
func New(path string) *Manifest {
	return &Manifest{
		Files:  map[string]string{},
		origin: path,
	}
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(
			"read manifest %s: %w", path, err,
		)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf(
			"parse manifest %s: %w: %w", path, ErrParse, err,
		)
	}

	m := &Manifest{
		Files:  map[string]string{},
		origin: path,
	}

	if raw, ok := top["files"]; ok {
		if err := json.Unmarshal(raw, &m.Files); err != nil {
			return nil, fmt.Errorf(
				"parse manifest %s: files: %w: %w",
				path, ErrParse, err,
			)
		}
		delete(top, "files")
	}
	if raw, ok := top["package"]; ok {
		if err := json.Unmarshal(raw, &m.Package); err != nil {
			return nil, fmt.Errorf(
				"parse manifest %s: package: %w: %w",
				path, ErrParse, err,
			)
		}
		m.pkgRaw = raw
		delete(top, "package")
	}
	if len(top) > 0 {
		m.extra = top
	}

	return m, nil
}

// Path returns where Persist writes this manifest.
func (m *Manifest) Path() string {
	return m.origin
}

// Upsert inserts or overwrites the digest for a
// path-within-package. In-memory only.
func (m *Manifest) Upsert(rel, digest string) {
	m.Files[rel] = digest
}

// Remove drops the entry for a path-within-package if present.
// In-memory only.
func (m *Manifest) Remove(rel string) {
	delete(m.Files, rel)
}

// Persist serializes the manifest and fully overwrites its origin
// file. Top-level keys and the files map are emitted in sorted
// order, so unchanged content serializes to identical bytes.
func (m *Manifest) Persist() error {
	out := make(map[string]json.RawMessage, len(m.extra)+2)

	files, err := json.Marshal(m.Files)
	if err != nil {
		return fmt.Errorf(
			"encode manifest %s: %w", m.origin, err,
		)
	}
	out["files"] = files

	switch {
	case m.pkgRaw != nil:
		out["package"] = m.pkgRaw
	case m.Package != nil:
		pkg, err := json.Marshal(m.Package)
		if err != nil {
			return fmt.Errorf(
				"encode manifest %s: %w", m.origin, err,
			)
		}
		out["package"] = pkg
	default:
		out["package"] = json.RawMessage("null")
	}

	for k, v := range m.extra {
		out[k] = v
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf(
			"encode manifest %s: %w", m.origin, err,
		)
	}

	if err := os.WriteFile(m.origin, data, 0644); err != nil {
		return fmt.Errorf(
			"write manifest %s: %w", m.origin, err,
		)
	}
	return nil
}
