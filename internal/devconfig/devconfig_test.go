package devconfig_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/devlock/internal/devconfig"
)

func TestDefaultPath_PrefersXDGConfigHome(t *testing.T) {
	t.Parallel()

	got := devconfig.DefaultPath(map[string]string{"XDG_CONFIG_HOME": "/xdg", "HOME": "/home/user"})
	assert.Equal(t, filepath.Join("/xdg", "devlock", "config.json"), got)
}

func TestDefaultPath_FallsBackToHome(t *testing.T) {
	t.Parallel()

	got := devconfig.DefaultPath(map[string]string{"HOME": "/home/user"})
	assert.Equal(t, filepath.Join("/home/user", ".config", "devlock", "config.json"), got)
}

func TestDefaultPath_EmptyWhenNeitherSet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", devconfig.DefaultPath(map[string]string{}))
}

func TestLoad_MissingDefaultPathIsNotAnError(t *testing.T) {
	t.Parallel()

	cfg, err := devconfig.Load("", false, map[string]string{"HOME": t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, devconfig.Config{}, cfg)
}

func TestLoad_ExplicitMissingPathIsAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := devconfig.Load(filepath.Join(dir, "nope.json"), true, nil)
	require.Error(t, err)
}

func TestLoad_ParsesJSONCWithComments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{
		// custom range for this project
		"min_port": 40000,
		"max_port": 41000,
		"allow_privileged": true,
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := devconfig.Load(path, true, nil)
	require.NoError(t, err)
	assert.Equal(t, 40000, cfg.MinPort)
	assert.Equal(t, 41000, cfg.MaxPort)
	assert.True(t, cfg.AllowPrivileged)
}

func TestLoad_InvalidJSONIsAnError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("not json at all {{{"), 0o600))

	_, err := devconfig.Load(path, true, nil)
	require.Error(t, err)
}

func TestConfig_DurationHelpers(t *testing.T) {
	t.Parallel()

	cfg := devconfig.Config{StaleTimeoutMS: 5000, RetryIntervalMS: 250}
	assert.Equal(t, 5*time.Second, cfg.StaleTimeout())
	assert.Equal(t, 250*time.Millisecond, cfg.RetryInterval())

	zero := devconfig.Config{}
	assert.Equal(t, time.Duration(0), zero.StaleTimeout())
	assert.Equal(t, time.Duration(0), zero.RetryInterval())
}
