//go:build linux

package alarm

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// RTCTable is a Table backed by one timerfd per registration, armed with an
// absolute realtime deadline. In idle-tolerant mode it uses
// CLOCK_REALTIME_ALARM, which resumes a suspended system and needs
// CAP_WAKE_ALARM.
type RTCTable struct {
	mu      sync.Mutex
	entries map[int]*rtcEntry
	fire    FireFunc
	idle    bool
	log     zerolog.Logger
}

type rtcEntry struct {
	req  Request
	file *os.File
}

// NewRTCTable probes timerfd support and returns a table, or an error if the
// kernel offers no realtime timerfd.
func NewRTCTable(fire FireFunc, log zerolog.Logger) (*RTCTable, error) {
	fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		return nil, fmt.Errorf("timerfd unavailable: %w", err)
	}
	unix.Close(fd)

	idle := false
	if fd, err := unix.TimerfdCreate(unix.CLOCK_REALTIME_ALARM, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK); err == nil {
		unix.Close(fd)
		idle = true
	}

	t := &RTCTable{
		entries: make(map[int]*rtcEntry),
		fire:    fire,
		idle:    idle,
		log:     log.With().Str("component", "rtc_table").Logger(),
	}
	t.log.Info().Bool("wake_alarm", idle).Msg("timerfd alarm table ready")
	return t, nil
}

// SupportsIdle reports whether CLOCK_REALTIME_ALARM timers can be created.
func (t *RTCTable) SupportsIdle() bool { return t.idle }

// Set arms a fresh timerfd for id and closes the one it replaces.
func (t *RTCTable) Set(id int, at time.Time, mode Mode, req Request) error {
	clock := unix.CLOCK_REALTIME
	if mode == ModeExactAllowWhileIdle {
		if !t.idle {
			return ErrIdleUnsupported
		}
		clock = unix.CLOCK_REALTIME_ALARM
	}

	fd, err := unix.TimerfdCreate(clock, unix.TFD_CLOEXEC|unix.TFD_NONBLOCK)
	if err != nil {
		if mode == ModeExactAllowWhileIdle && (errors.Is(err, unix.EPERM) || errors.Is(err, unix.EINVAL)) {
			return fmt.Errorf("%w: %w", ErrIdleUnsupported, err)
		}
		return fmt.Errorf("timerfd_create: %w", err)
	}

	// A zero it_value disarms the timer, so past deadlines are clamped to 1ns.
	ns := at.UnixNano()
	if ns <= 0 {
		ns = 1
	}
	spec := unix.ItimerSpec{Value: unix.NsecToTimespec(ns)}
	if err := unix.TimerfdSettime(fd, unix.TFD_TIMER_ABSTIME, &spec, nil); err != nil {
		unix.Close(fd)
		return fmt.Errorf("timerfd_settime: %w", err)
	}

	e := &rtcEntry{req: req, file: os.NewFile(uintptr(fd), fmt.Sprintf("alarm-%d", id))}

	t.mu.Lock()
	old := t.entries[id]
	t.entries[id] = e
	t.mu.Unlock()

	if old != nil {
		old.file.Close()
	}
	go t.wait(id, e)
	return nil
}

// wait blocks until the timerfd expires or is closed.
func (t *RTCTable) wait(id int, e *rtcEntry) {
	var buf [8]byte
	if _, err := e.file.Read(buf[:]); err != nil {
		if !errors.Is(err, os.ErrClosed) {
			t.log.Warn().Err(err).Int("alarm_id", id).Msg("timerfd read failed")
		}
		return
	}

	t.mu.Lock()
	if t.entries[id] != e {
		t.mu.Unlock()
		return
	}
	delete(t.entries, id)
	t.mu.Unlock()

	e.file.Close()
	t.fire(e.req)
}

// Cancel disarms and removes the registration for id.
func (t *RTCTable) Cancel(id int) bool {
	t.mu.Lock()
	e, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	e.file.Close()
	return true
}

// Close cancels every registration.
func (t *RTCTable) Close() {
	t.mu.Lock()
	entries := t.entries
	t.entries = make(map[int]*rtcEntry)
	t.mu.Unlock()

	for _, e := range entries {
		e.file.Close()
	}
}
