//go:build linux

package alarm

import "github.com/rs/zerolog"

// NewPlatformTable returns the timerfd table, or the runtime-timer table
// when timerfd cannot be used.
func NewPlatformTable(fire FireFunc, log zerolog.Logger) Table {
	t, err := NewRTCTable(fire, log)
	if err != nil {
		log.Warn().Err(err).Msg("falling back to runtime timers; alarms will not wake a suspended host")
		return NewTimerTable(fire)
	}
	return t
}
