//go:build !linux

package alarm

import "github.com/rs/zerolog"

// NewPlatformTable returns the runtime-timer table.
func NewPlatformTable(fire FireFunc, log zerolog.Logger) Table {
	log.Warn().Msg("no wake-capable timer facility on this platform; using runtime timers")
	return NewTimerTable(fire)
}
