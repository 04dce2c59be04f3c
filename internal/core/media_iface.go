package core

import (
	"context"
)

// Constraints narrows what a capture device should deliver.
type Constraints struct {
	Audio    bool
	MimeType string // preferred container, e.g. "audio/webm"; empty means device default
}

// Clip is the finalized audio of a capture.
type Clip struct {
	MimeType string
	Data     []byte
}

// CaptureDevice is an exclusive audio input. Acquire fails with
// domain.ErrPermissionDenied or domain.ErrDeviceUnavailable.
type CaptureDevice interface {
	Acquire(ctx context.Context, c Constraints) (CaptureStream, error)
}

// CaptureStream buffers audio between Acquire and Finalize.
// Owned by the recorder; the recorder must Release() it.
type CaptureStream interface {
	// Finalize stops buffering and returns everything captured so far.
	Finalize() (Clip, error)
	// Release gives the device back. Safe to call more than once.
	Release()
}

// ArtifactStore keeps finalized clips addressable by URL, like object URLs
// in a browser. A clip stays until it is revoked; a full store fails Put
// with domain.ErrStorageFull.
type ArtifactStore interface {
	Put(clip Clip) (url string, err error)
	Revoke(url string)
}
