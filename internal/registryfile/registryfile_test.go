package registryfile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/devlock/internal/errs"
	"github.com/calvinalkan/devlock/internal/fsx"
	"github.com/calvinalkan/devlock/internal/registryfile"
)

func TestReadWrite_RoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "devlock", "registry.json")

	rec := registryfile.Record{
		Version: registryfile.CurrentVersion,
		Entries: []registryfile.Entry{
			{Port: 49200, PID: 123, Timestamp: 1700000000000, Tag: "api"},
			{Port: 49201, PID: 456, Timestamp: 1700000001000},
		},
	}

	real := fsx.NewReal()
	require.NoError(t, registryfile.Write(real, path, rec))

	got, err := registryfile.Read(real, path)
	require.NoError(t, err)

	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRead_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	got, err := registryfile.Read(fsx.NewReal(), path)
	require.NoError(t, err)
	assert.Equal(t, registryfile.Empty(), got)
}

func TestRead_MalformedJSONIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	got, err := registryfile.Read(fsx.NewReal(), path)
	require.NoError(t, err)
	assert.Equal(t, registryfile.Empty(), got)
}

func TestRead_UnknownVersionIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "entries": []}`), 0o600))

	got, err := registryfile.Read(fsx.NewReal(), path)
	require.NoError(t, err)
	assert.Equal(t, registryfile.Empty(), got)
}

func TestRead_TolerantOfJSONWithComments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	content := `{
		// hand edited
		"version": 1,
		"entries": [
			{"port": 49200, "pid": 1, "timestamp": 1, "tag": "x"},
		],
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, err := registryfile.Read(fsx.NewReal(), path)
	require.NoError(t, err)
	assert.Len(t, got.Entries, 1)
	assert.Equal(t, 49200, got.Entries[0].Port)
}

func TestRead_NonArrayEntriesIsEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 1, "entries": "nope"}`), 0o600))

	got, err := registryfile.Read(fsx.NewReal(), path)
	require.NoError(t, err)
	assert.Equal(t, registryfile.Empty(), got)
}

func TestRead_GenuineIOFailureIsErrIO(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":1,"entries":[]}`), 0o600))

	chaos := fsx.NewChaos(fsx.NewReal(), fsx.ChaosConfig{OpenFailRate: 1})

	_, err := registryfile.Read(chaos, path)
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrIO)
}

func TestWrite_CreatesParentDirectory(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "registry.json")

	err := registryfile.Write(fsx.NewReal(), path, registryfile.Empty())
	require.NoError(t, err)
	assert.DirExists(t, filepath.Dir(path))
}

func TestWrite_NilEntriesSerializeAsEmptyArray(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "registry.json")

	err := registryfile.Write(fsx.NewReal(), path, registryfile.Record{Version: 1})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entries": []`)
}
