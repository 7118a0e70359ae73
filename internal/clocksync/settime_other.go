//go:build !linux

package clocksync

import (
	"time"

	"github.com/pscheid92/n2kbridge/internal/domain"
)

// SystemSetter is unavailable on this platform.
type SystemSetter struct{}

func (SystemSetter) SetTime(time.Time) error {
	return domain.ErrClockUnsupported
}
