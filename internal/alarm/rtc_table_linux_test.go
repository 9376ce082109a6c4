//go:build linux

package alarm

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRTCTable(t *testing.T, rec *recorder) *RTCTable {
	table, err := NewRTCTable(rec.fire, zerolog.Nop())
	if err != nil {
		t.Skipf("timerfd unavailable: %v", err)
	}
	t.Cleanup(table.Close)
	return table
}

func TestRTCTable_FiresAtDeadline(t *testing.T) {
	rec := &recorder{}
	table := newRTCTable(t, rec)

	at := time.Now().Add(50 * time.Millisecond)
	require.NoError(t, table.Set(7, at, ModeExact, Request{ID: 7, PrayerName: "maghrib"}))

	assert.Eventually(t, func() bool { return len(rec.Fired()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, time.Now().Before(at))
	assert.Equal(t, "maghrib", rec.Fired()[0].PrayerName)
	assert.False(t, table.Cancel(7), "fired registrations are removed")
}

func TestRTCTable_ReplaceAndCancel(t *testing.T) {
	rec := &recorder{}
	table := newRTCTable(t, rec)

	require.NoError(t, table.Set(1, time.Now().Add(30*time.Millisecond), ModeExact, Request{ID: 1, PrayerName: "old"}))
	require.NoError(t, table.Set(1, time.Now().Add(60*time.Millisecond), ModeExact, Request{ID: 1, PrayerName: "new"}))
	require.NoError(t, table.Set(2, time.Now().Add(30*time.Millisecond), ModeExact, Request{ID: 2}))
	assert.True(t, table.Cancel(2))

	time.Sleep(200 * time.Millisecond)
	fired := rec.Fired()
	require.Len(t, fired, 1)
	assert.Equal(t, "new", fired[0].PrayerName)
}

func TestRTCTable_IdleModeMatchesProbe(t *testing.T) {
	rec := &recorder{}
	table := newRTCTable(t, rec)

	err := table.Set(3, time.Now().Add(time.Hour), ModeExactAllowWhileIdle, Request{ID: 3})
	if table.SupportsIdle() {
		require.NoError(t, err)
		assert.True(t, table.Cancel(3))
	} else {
		assert.ErrorIs(t, err, ErrIdleUnsupported)
	}
}
