package cli_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/devlock/internal/cli"
	"github.com/calvinalkan/devlock/internal/errs"
)

func TestReportError_JSONClassifiesLockedError(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	o := cli.NewIO(&out, &errOut, true, false)
	err := &errs.LockedError{Path: "/tmp/x.lock", HolderPID: 42, HolderTag: "server"}

	code := cli.ReportError(o, err)
	assert.Equal(t, 1, code)

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "ALREADY_LOCKED", report["type"])
	assert.Equal(t, float64(42), report["holder_pid"])
	assert.Equal(t, "server", report["holder_tag"])
}

func TestReportError_JSONClassifiesNotOwnedError(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	o := cli.NewIO(&out, &errOut, true, false)
	err := &errs.NotOwnedError{Port: 5000, OwnerPID: 7, CallerPID: 8}

	cli.ReportError(o, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "NOT_OWNED", report["type"])
	assert.Equal(t, float64(7), report["owner_pid"])
}

func TestReportError_JSONClassifiesEachSentinel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err      error
		wantType string
	}{
		{errs.ErrNotLocked, "NOT_LOCKED"},
		{errs.ErrTimeout, "TIMEOUT"},
		{errs.ErrPathTraversal, "PATH_TRAVERSAL"},
		{errs.ErrParseError, "PARSE_ERROR"},
		{errs.ErrSizeLimit, "SIZE_LIMIT"},
		{errs.ErrInvalidPort, "INVALID_PORT"},
		{errs.ErrInvalidCount, "INVALID_COUNT"},
		{errs.ErrNotRegistered, "NOT_REGISTERED"},
		{errs.ErrIO, "IO_ERROR"},
		{fmt.Errorf("something unrelated"), "UNKNOWN"},
	}

	for _, tc := range cases {
		var out, errOut bytes.Buffer

		o := cli.NewIO(&out, &errOut, true, false)
		cli.ReportError(o, tc.err)

		var report map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, tc.wantType, report["type"], "for error %v", tc.err)
		assert.Equal(t, "failed", report["status"])
	}
}

func TestReportError_PlainTextGoesToStderr(t *testing.T) {
	t.Parallel()

	var out, errOut bytes.Buffer

	o := cli.NewIO(&out, &errOut, false, false)
	cli.ReportError(o, errs.ErrNotLocked)

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "not locked")
}
