package cli_test

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/devlock/internal/cli"
)

func runFileSem(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	var out, errOut bytes.Buffer
	code = cli.RunFileSem(nil, &out, &errOut, append([]string{"filesem"}, args...), map[string]string{})

	return out.String(), errOut.String(), code
}

func runPortReg(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	var out, errOut bytes.Buffer
	code = cli.RunPortReg(nil, &out, &errOut, append([]string{"portreg"}, args...), map[string]string{})

	return out.String(), errOut.String(), code
}

func TestRunFileSem_TryAcquireAndStatus(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "test.lock")

	out, _, code := runFileSem(t, "tryAcquire", lockPath, "--tag", "dev-server")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "acquired")

	out, _, code = runFileSem(t, "--json", "status", lockPath)
	require.Equal(t, 0, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, true, report["locked"])
	assert.Equal(t, "dev-server", report["tag"])
}

func TestRunFileSem_ContentionReturnsErrorExitCode(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "test.lock")

	_, _, code := runFileSem(t, "tryAcquire", lockPath)
	require.Equal(t, 0, code)

	out, _, code := runFileSem(t, "--json", "tryAcquire", lockPath)
	assert.Equal(t, 1, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "ALREADY_LOCKED", report["type"])
}

func TestRunFileSem_ReleaseThenStatusUnlocked(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "test.lock")

	_, _, code := runFileSem(t, "tryAcquire", lockPath)
	require.Equal(t, 0, code)

	_, _, code = runFileSem(t, "release", lockPath)
	require.Equal(t, 0, code)

	out, _, code := runFileSem(t, "status", lockPath)
	require.Equal(t, 0, code)
	assert.Contains(t, out, "not locked")
}

func TestRunFileSem_UnknownCommand(t *testing.T) {
	t.Parallel()

	_, errOut, code := runFileSem(t, "bogus")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestRunFileSem_NoArgsShowsUsage(t *testing.T) {
	t.Parallel()

	out, _, code := runFileSem(t)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage:")
}

func TestRunPortReg_GetListRelease(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	out, _, code := runPortReg(t, "--registry-dir", dir, "--min-port", "50100", "--max-port", "50105", "get", "--tag", "api")
	require.Equal(t, 0, code)

	portLine := strings.TrimSpace(out)
	require.NotEmpty(t, portLine)

	out, _, code = runPortReg(t, "--registry-dir", dir, "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "tag=api")

	_, _, code = runPortReg(t, "--registry-dir", dir, "release", portLine)
	require.Equal(t, 0, code)

	out, _, code = runPortReg(t, "--registry-dir", dir, "list")
	require.Equal(t, 0, code)
	assert.Empty(t, strings.TrimSpace(out))
}

func TestRunPortReg_StatusJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, _, code := runPortReg(t, "--registry-dir", dir, "--min-port", "50110", "--max-port", "50115", "get")
	require.Equal(t, 0, code)

	out, _, code := runPortReg(t, "--registry-dir", dir, "--json", "status")
	require.Equal(t, 0, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, float64(1), report["total_entries"])
}
