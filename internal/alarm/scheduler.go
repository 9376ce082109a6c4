package alarm

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"prayer-alerts/internal/parse"
)

// The cancel sweep covers exactly this id range.
const (
	MinID = 1
	MaxID = 100
)

// ErrIdleUnsupported is returned by a Table asked for ModeExactAllowWhileIdle
// when it cannot provide it.
var ErrIdleUnsupported = errors.New("idle-tolerant timers are not supported")

// Scheduler registers and cancels alarms on a Table. It keeps no registry of
// its own; the table is the only source of truth.
type Scheduler struct {
	table Table
	log   zerolog.Logger
}

// NewScheduler creates a scheduler over table.
func NewScheduler(table Table, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		table: table,
		log:   log.With().Str("component", "alarm_scheduler").Logger(),
	}
}

// Schedule registers req, replacing any registration with the same id.
func (s *Scheduler) Schedule(req Request) error {
	if req.ID < MinID || req.ID > MaxID {
		s.log.Warn().Int("alarm_id", req.ID).Msg("alarm id is outside the cancellable range; CancelAll will not reach it")
	}

	mode := ModeExact
	if s.table.SupportsIdle() {
		mode = ModeExactAllowWhileIdle
	}

	at := req.At()
	err := s.table.Set(req.ID, at, mode, req)
	if mode == ModeExactAllowWhileIdle && errors.Is(err, ErrIdleUnsupported) {
		s.log.Warn().Err(err).Int("alarm_id", req.ID).Msg("falling back to exact timer without idle wake-up")
		mode = ModeExact
		err = s.table.Set(req.ID, at, mode, req)
	}
	if err != nil {
		return fmt.Errorf("failed to schedule alarm %d at %s: %w", req.ID, parse.FormatTimestamp(at), err)
	}

	s.log.Info().
		Int("alarm_id", req.ID).
		Time("at", at).
		Str("prayer", req.PrayerName).
		Stringer("mode", mode).
		Msg("alarm scheduled")
	return nil
}

// CancelAll cancels every registration in MinID..MaxID and returns how many
// were actually present. Calling it again cancels nothing.
func (s *Scheduler) CancelAll() int {
	cancelled := 0
	for id := MinID; id <= MaxID; id++ {
		if s.table.Cancel(id) {
			cancelled++
		}
	}
	s.log.Info().Int("cancelled", cancelled).Msg("all alarms cancelled")
	return cancelled
}
