package alarm

import (
	"errors"
	"time"
)

// Request is one alarm registration. It is carried unchanged through the
// timer table and handed back to the fire callback.
type Request struct {
	ID                int    `json:"alarmId"`
	ScheduledTime     int64  `json:"scheduledTime"`
	PrayerName        string `json:"prayerName"`
	PrayerDisplayName string `json:"prayerDisplayName"`
}

// At returns the wall-clock deadline. The result carries no monotonic
// reading, so comparisons against it follow clock corrections.
func (r Request) At() time.Time {
	return time.UnixMilli(r.ScheduledTime)
}

// Validate checks the fields the scheduler cannot work without.
func (r Request) Validate() error {
	if r.ID <= 0 {
		return errors.New("alarmId must be a positive integer")
	}
	if r.ScheduledTime <= 0 {
		return errors.New("scheduledTime must be a positive epoch milliseconds value")
	}
	return nil
}

// Mode selects how a timer behaves while the host is idle.
type Mode int

const (
	// ModeExact fires at the deadline while the host is awake.
	ModeExact Mode = iota
	// ModeExactAllowWhileIdle also wakes the host from idle or suspend.
	ModeExactAllowWhileIdle
)

func (m Mode) String() string {
	if m == ModeExactAllowWhileIdle {
		return "exact_allow_while_idle"
	}
	return "exact"
}

// FireFunc is invoked once per registration when its deadline passes.
type FireFunc func(req Request)

// Table is the OS timer facility: a keyed set of one-shot registrations.
// Set with an existing id replaces the previous registration atomically.
type Table interface {
	Set(id int, at time.Time, mode Mode, req Request) error
	Cancel(id int) bool
	SupportsIdle() bool
}
