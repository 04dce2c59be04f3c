// Package apierr maps domain errors to the codes and statuses clients see.
package apierr

import (
	"errors"
	"net/http"

	"github.com/dkeye/Standup/internal/domain"
)

const (
	CodeBadPayload  = "bad_payload"
	CodeRateLimited = "rate_limited"
	CodeUnknownType = "unknown_type"
	CodeInternal    = "internal"
)

var table = []struct {
	err    error
	code   string
	status int
}{
	{domain.ErrPermissionDenied, "permission_denied", http.StatusForbidden},
	{domain.ErrDeviceUnavailable, "device_unavailable", http.StatusServiceUnavailable},
	{domain.ErrRecordingInProgress, "recording_in_progress", http.StatusConflict},
	{domain.ErrStorageFull, "storage_full", http.StatusInsufficientStorage},
	{domain.ErrMemberNotFound, "member_not_found", http.StatusNotFound},
	{domain.ErrPresetNotFound, "preset_not_found", http.StatusNotFound},
	{domain.ErrNameEmpty, "name_empty", http.StatusBadRequest},
	{domain.ErrNameTooLong, "name_too_long", http.StatusBadRequest},
	{domain.ErrUnknownRole, "unknown_role", http.StatusBadRequest},
}

// Code is the wire code for err, CodeInternal when it is not a domain error.
func Code(err error) string {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return CodeInternal
}

// Status is the HTTP status for err.
func Status(err error) int {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}
