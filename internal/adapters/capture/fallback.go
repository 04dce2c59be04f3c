package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Standup/internal/core"
	"github.com/dkeye/Standup/internal/domain"
)

// Fallback acquires the first device that succeeds, in order. When all fail
// and any of them was denied, the result is a permission error.
type Fallback struct {
	devices []core.CaptureDevice
}

func NewFallback(devices ...core.CaptureDevice) *Fallback {
	return &Fallback{devices: devices}
}

func (f *Fallback) Acquire(ctx context.Context, c core.Constraints) (core.CaptureStream, error) {
	var errs []error
	denied := false
	for _, dev := range f.devices {
		if dev == nil {
			continue
		}
		s, err := dev.Acquire(ctx, c)
		if err == nil {
			return s, nil
		}
		errs = append(errs, err)
		if errors.Is(err, domain.ErrPermissionDenied) {
			denied = true
		}
	}
	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: no capture device", domain.ErrDeviceUnavailable)
	}
	if denied {
		return nil, fmt.Errorf("%w: %w", domain.ErrPermissionDenied, errors.Join(errs...))
	}
	return nil, fmt.Errorf("%w: %w", domain.ErrDeviceUnavailable, errors.Join(errs...))
}
