package alarm

import (
	"sync"
	"time"
)

// maxSlice bounds how long a runtime timer sleeps before the deadline is
// re-checked against the wall clock. A forward clock jump or a resume from
// suspend delays a firing by at most this much.
const maxSlice = 5 * time.Second

// TimerTable is a portable Table backed by Go runtime timers. It cannot
// wake a suspended host.
type TimerTable struct {
	mu      sync.Mutex
	entries map[int]*timerEntry
	fire    FireFunc
	now     func() time.Time
	slice   time.Duration
}

type timerEntry struct {
	req   Request
	at    time.Time
	timer *time.Timer
}

// NewTimerTable creates a runtime-timer table.
func NewTimerTable(fire FireFunc) *TimerTable {
	return &TimerTable{
		entries: make(map[int]*timerEntry),
		fire:    fire,
		now:     time.Now,
		slice:   maxSlice,
	}
}

// SupportsIdle reports false: runtime timers stall while the host sleeps.
func (t *TimerTable) SupportsIdle() bool { return false }

// Set registers or replaces the timer for id.
func (t *TimerTable) Set(id int, at time.Time, mode Mode, req Request) error {
	if mode == ModeExactAllowWhileIdle {
		return ErrIdleUnsupported
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.entries[id]; ok {
		old.timer.Stop()
	}
	e := &timerEntry{req: req, at: at.Round(0)}
	t.entries[id] = e
	t.arm(id, e)
	return nil
}

// arm must be called with t.mu held.
func (t *TimerTable) arm(id int, e *timerEntry) {
	d := e.at.Sub(t.now().Round(0))
	if d < 0 {
		d = 0
	}
	if d > t.slice {
		d = t.slice
	}
	e.timer = time.AfterFunc(d, func() { t.tick(id, e) })
}

func (t *TimerTable) tick(id int, e *timerEntry) {
	t.mu.Lock()
	if t.entries[id] != e {
		t.mu.Unlock()
		return
	}
	if t.now().Round(0).Before(e.at) {
		t.arm(id, e)
		t.mu.Unlock()
		return
	}
	delete(t.entries, id)
	t.mu.Unlock()

	t.fire(e.req)
}

// Cancel removes the registration for id and reports whether one existed.
func (t *TimerTable) Cancel(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(t.entries, id)
	return true
}

// Len returns the number of live registrations.
func (t *TimerTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
