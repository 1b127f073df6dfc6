package cli

import (
	"errors"

	"github.com/calvinalkan/devlock/internal/errs"
)

// ErrorReport is the machine-readable shape every failing --json command
// emits (spec §6/§7): a `type` field a caller can branch on, a
// human-readable message, and any contextual fields the error kind
// carries.
type ErrorReport struct {
	Status    string `json:"status"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	HolderPID int    `json:"holder_pid,omitempty"`
	HolderTag string `json:"holder_tag,omitempty"`
	OwnerPID  int    `json:"owner_pid,omitempty"`
}

// classify maps err onto its spec §7 error kind name and extracts any
// contextual fields.
func classify(err error) ErrorReport {
	report := ErrorReport{Status: "failed", Message: err.Error(), Type: "UNKNOWN"}

	switch {
	case errors.Is(err, errs.ErrAlreadyLocked):
		report.Type = "ALREADY_LOCKED"

		var locked *errs.LockedError
		if errors.As(err, &locked) {
			report.HolderPID = locked.HolderPID
			report.HolderTag = locked.HolderTag
		}
	case errors.Is(err, errs.ErrNotLocked):
		report.Type = "NOT_LOCKED"
	case errors.Is(err, errs.ErrPermissionDenied):
		report.Type = "PERMISSION_DENIED"

		var perm *errs.PermissionError
		if errors.As(err, &perm) {
			report.HolderPID = perm.HolderPID
		}
	case errors.Is(err, errs.ErrTimeout):
		report.Type = "TIMEOUT"
	case errors.Is(err, errs.ErrPathTraversal):
		report.Type = "PATH_TRAVERSAL"
	case errors.Is(err, errs.ErrParseError):
		report.Type = "PARSE_ERROR"
	case errors.Is(err, errs.ErrSizeLimit):
		report.Type = "SIZE_LIMIT"
	case errors.Is(err, errs.ErrInvalidPort):
		report.Type = "INVALID_PORT"
	case errors.Is(err, errs.ErrInvalidCount):
		report.Type = "INVALID_COUNT"
	case errors.Is(err, errs.ErrNotRegistered):
		report.Type = "NOT_REGISTERED"
	case errors.Is(err, errs.ErrNotOwned):
		report.Type = "NOT_OWNED"

		var notOwned *errs.NotOwnedError
		if errors.As(err, &notOwned) {
			report.OwnerPID = notOwned.OwnerPID
		}
	case errors.Is(err, errs.ErrIO):
		report.Type = "IO_ERROR"
	}

	return report
}

// ReportError writes err to o, as a JSON ErrorReport when --json was
// requested, or a short message on stderr otherwise. Always returns 1, the
// exit code every surfaced error maps to (spec §6).
func ReportError(o *IO, err error) int {
	if o.JSON() {
		_ = o.PrintJSON(classify(err))
	} else {
		o.ErrPrintln("error:", err)
	}

	return 1
}
