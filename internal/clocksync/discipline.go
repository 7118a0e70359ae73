// Package clocksync keeps the host wall clock aligned with the bus.
//
// A Discipline subscribes to the message hub and applies the time carried in
// System Time messages (PGN 126992), at most once per interval.
package clocksync

import (
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/metrics"
	"github.com/pscheid92/n2kbridge/internal/nmea2000"
)

const DefaultInterval = time.Hour

type Discipline struct {
	clock    clockwork.Clock
	setter   domain.ClockSetter
	interval time.Duration
	last     time.Time
}

var _ domain.Consumer[domain.Message] = (*Discipline)(nil)

// New returns a Discipline whose interval has already elapsed, so the first
// valid System Time message sets the clock.
func New(clock clockwork.Clock, setter domain.ClockSetter, interval time.Duration) *Discipline {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Discipline{
		clock:    clock,
		setter:   setter,
		interval: interval,
		last:     clock.Now().Add(-interval),
	}
}

// Accept handles one hub message. Anything but a System Time message is
// ignored, as is every System Time message until the interval has passed.
func (d *Discipline) Accept(msg domain.Message) {
	if msg.PGN != nmea2000.PGNSystemTime {
		return
	}
	if d.clock.Since(d.last) < d.interval {
		metrics.ClockSyncUpdatesTotal.WithLabelValues("throttled").Inc()
		return
	}

	st, ok := nmea2000.ParseSystemTime(msg)
	if !ok {
		metrics.ClockSyncUpdatesTotal.WithLabelValues("decode_error").Inc()
		slog.Debug("Ignoring undecodable system time", "source", msg.Source)
		return
	}

	// The attempt restarts the interval even when the setter fails, so a
	// host without permission is not retried on every message.
	d.last = d.clock.Now()

	t := st.Time()
	if err := d.setter.SetTime(t); err != nil {
		metrics.ClockSyncUpdatesTotal.WithLabelValues("set_error").Inc()
		slog.Warn("Failed to set system clock", "time", t, "error", err)
		return
	}

	metrics.ClockSyncUpdatesTotal.WithLabelValues("applied").Inc()
	metrics.ClockSyncLastUpdate.Set(float64(t.Unix()))
	slog.Info("System clock updated from bus", "time", t, "source", msg.Source)
}

// SinceLastUpdate reports the time elapsed since the last clock update
// attempt, or the configured interval if there has been none.
func (d *Discipline) SinceLastUpdate() time.Duration {
	return d.clock.Since(d.last)
}

func (d *Discipline) Interval() time.Duration {
	return d.interval
}
