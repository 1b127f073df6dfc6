package liveness_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/calvinalkan/devlock/internal/liveness"
)

func TestIsRunning_CurrentProcess(t *testing.T) {
	t.Parallel()

	assert.True(t, liveness.IsRunning(os.Getpid()))
}

func TestIsRunning_ZeroOrNegativePID(t *testing.T) {
	t.Parallel()

	assert.False(t, liveness.IsRunning(0))
	assert.False(t, liveness.IsRunning(-1))
}

func TestIsRunning_UnlikelyPID(t *testing.T) {
	t.Parallel()

	// PID 999999999 is far above the largest pid_max Linux allows (4194304,
	// i.e. 2^22); still, this is inherently best-effort so we only assert it
	// doesn't panic and returns a bool.
	got := liveness.IsRunning(999999999)
	assert.IsType(t, false, got)
}
