package domain

import "errors"

var (
	ErrPermissionDenied    = errors.New("permission denied")
	ErrDeviceUnavailable   = errors.New("device unavailable")
	ErrRecordingInProgress = errors.New("recording already in progress")
	ErrStorageFull         = errors.New("artifact storage full")

	ErrMemberNotFound = errors.New("member not found")
	ErrPresetNotFound = errors.New("preset not found")

	ErrNameEmpty   = errors.New("name empty")
	ErrNameTooLong = errors.New("name too long")
	ErrUnknownRole = errors.New("unknown role")
)
