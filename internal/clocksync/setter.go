package clocksync

import (
	"log/slog"
	"time"

	"github.com/pscheid92/n2kbridge/internal/domain"
)

// LogOnlySetter reports the time it would have applied without touching the
// host clock.
type LogOnlySetter struct{}

var _ domain.ClockSetter = LogOnlySetter{}

func (LogOnlySetter) SetTime(t time.Time) error {
	slog.Info("Clock sync disabled, not applying bus time", "time", t)
	return nil
}

// NewSetter returns the host clock setter, or a LogOnlySetter when enabled
// is false.
func NewSetter(enabled bool) domain.ClockSetter {
	if !enabled {
		return LogOnlySetter{}
	}
	return SystemSetter{}
}
