//go:build linux

package clocksync

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// SystemSetter sets the host wall clock. The process needs CAP_SYS_TIME.
type SystemSetter struct{}

func (SystemSetter) SetTime(t time.Time) error {
	tv := unix.NsecToTimeval(t.UnixNano())
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("settimeofday: %w", err)
	}
	return nil
}
