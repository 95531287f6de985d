package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), ".cargo-checksum.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoad(t *testing.T) {
	p := writeManifest(t,
		`{"files":{"src/lib.rs":"abc123","Cargo.toml":"def456"},"package":"deadbeef"}`,
	)

	m, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"src/lib.rs": "abc123",
		"Cargo.toml": "def456",
	}, m.Files)
	require.NotNil(t, m.Package)
	assert.Equal(t, "deadbeef", *m.Package)
	assert.Equal(t, p, m.Path())
}

func TestLoadNullPackage(t *testing.T) {
	p := writeManifest(t, `{"files":{},"package":null}`)

	m, err := Load(p)
	require.NoError(t, err)
	assert.Nil(t, m.Package)
	assert.Empty(t, m.Files)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrParse)
}

func TestLoadMalformed(t *testing.T) {
	for _, content := range []string{
		`not json`,
		`[]`,
		`{"files":"not a map"}`,
		`{"files":{"a.txt":42}}`,
	} {
		p := writeManifest(t, content)
		_, err := Load(p)
		assert.ErrorIs(t, err, ErrParse, "content: %s", content)
	}
}

func TestRoundTrip(t *testing.T) {
	p := writeManifest(t,
		`{"files":{"a.txt":"aaa","b/c.txt":"bbb"},"package":"pkghash"}`,
	)

	m, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, m.Persist())

	again, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, m.Files, again.Files)
	require.NotNil(t, again.Package)
	assert.Equal(t, "pkghash", *again.Package)
}

func TestRoundTripKeepsUnknownFields(t *testing.T) {
	p := writeManifest(t,
		`{"files":{"a.txt":"aaa"},"package":"p","vendored_by":"tool/1.0"}`,
	)

	m, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, m.Persist())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"vendored_by":"tool/1.0"`)
}

func TestPersistDeterministic(t *testing.T) {
	p := writeManifest(t,
		`{"package":"p","files":{"z.txt":"zzz","a.txt":"aaa","m/n.txt":"mmm"}}`,
	)

	m, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, m.Persist())
	first, err := os.ReadFile(p)
	require.NoError(t, err)

	again, err := Load(p)
	require.NoError(t, err)
	require.NoError(t, again.Persist())
	second, err := os.ReadFile(p)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	// files precedes package, keys inside files are sorted
	assert.Equal(t,
		`{"files":{"a.txt":"aaa","m/n.txt":"mmm","z.txt":"zzz"},"package":"p"}`,
		string(first),
	)
}

func TestUpsertAndRemove(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), ".cargo-checksum.json"))

	m.Upsert("a.txt", "one")
	m.Upsert("a.txt", "two")
	m.Upsert("b.txt", "three")
	assert.Equal(t, map[string]string{
		"a.txt": "two",
		"b.txt": "three",
	}, m.Files)

	m.Remove("a.txt")
	m.Remove("missing.txt")
	assert.Equal(t, map[string]string{"b.txt": "three"}, m.Files)
}

func TestNewPersistsNullPackage(t *testing.T) {
	p := filepath.Join(t.TempDir(), ".cargo-checksum.json")
	m := New(p)
	m.Upsert("a.txt", "aaa")
	require.NoError(t, m.Persist())

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t,
		`{"files":{"a.txt":"aaa"},"package":null}`,
		string(data),
	)
}

func TestLoadToleratesMissingFields(t *testing.T) {
	m, err := Load(writeManifest(t, `{}`))
	require.NoError(t, err)
	assert.Empty(t, m.Files)
	assert.Nil(t, m.Package)
}
