package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prayer-alerts/internal/alarm"
	"prayer-alerts/internal/widget"
)

type fakeScheduler struct {
	scheduled []alarm.Request
	failIDs   map[int]bool
	cancelled int
}

func (f *fakeScheduler) Schedule(req alarm.Request) error {
	if f.failIDs[req.ID] {
		return errors.New("timerfd_create: operation not permitted")
	}
	f.scheduled = append(f.scheduled, req)
	return nil
}

func (f *fakeScheduler) CancelAll() int {
	n := len(f.scheduled)
	f.scheduled = nil
	f.cancelled += n
	return n
}

func newDeviceRouter(t *testing.T, s *fakeScheduler) *gin.Engine {
	w := widget.NewFileStore(filepath.Join(t.TempDir(), "widget.yaml"))
	return NewDeviceRouter(NewDeviceHandler(s, w, zerolog.Nop()), zerolog.Nop())
}

func TestScheduleAlarm(t *testing.T) {
	s := &fakeScheduler{}
	r := newDeviceRouter(t, s)

	w := do(r, http.MethodPost, "/alarms", map[string]any{
		"alarmId":           1,
		"scheduledTime":     1772323200000,
		"prayerName":        "fajr",
		"prayerDisplayName": "Subuh",
	}, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"Alarm scheduled"}`, w.Body.String())
	require.Len(t, s.scheduled, 1)
	assert.Equal(t, alarm.Request{ID: 1, ScheduledTime: 1772323200000, PrayerName: "fajr", PrayerDisplayName: "Subuh"}, s.scheduled[0])
}

func TestScheduleAlarm_Errors(t *testing.T) {
	s := &fakeScheduler{failIDs: map[int]bool{9: true}}
	r := newDeviceRouter(t, s)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/alarms", `{"alarmId":`, false).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPost, "/alarms", map[string]any{"alarmId": 1}, false).Code)

	w := do(r, http.MethodPost, "/alarms", map[string]any{"alarmId": 9, "scheduledTime": 1772323200000}, false)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "operation not permitted")
}

func TestScheduleAlarm_MissingID(t *testing.T) {
	s := &fakeScheduler{}
	r := newDeviceRouter(t, s)

	w := do(r, http.MethodPost, "/alarms", map[string]any{"scheduledTime": 1772323200000, "prayerName": "isha"}, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "alarmId")

	w = do(r, http.MethodPost, "/alarms/batch", []map[string]any{
		{"alarmId": 0, "scheduledTime": 1772323200000},
		{"alarmId": 5, "scheduledTime": 1772323200000},
	}, false)
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	require.Len(t, s.scheduled, 1)
	assert.Equal(t, 5, s.scheduled[0].ID)
}

func TestScheduleAlarms_Batch(t *testing.T) {
	s := &fakeScheduler{failIDs: map[int]bool{3: true}}
	r := newDeviceRouter(t, s)

	batch := []map[string]any{
		{"alarmId": 1, "scheduledTime": 1772323200000, "prayerName": "fajr"},
		{"alarmId": 2, "scheduledTime": 1772348400000, "prayerName": "dhuhr"},
		{"alarmId": 3, "scheduledTime": 1772361000000, "prayerName": "asr"},
	}
	w := do(r, http.MethodPost, "/alarms/batch", batch, false)
	assert.Equal(t, http.StatusMultiStatus, w.Code)
	assert.JSONEq(t, `{"results":[
		{"alarmId":1,"status":"Alarm scheduled"},
		{"alarmId":2,"status":"Alarm scheduled"},
		{"alarmId":3,"error":"timerfd_create: operation not permitted"}
	]}`, w.Body.String())
	assert.Len(t, s.scheduled, 2)

	w = do(r, http.MethodPost, "/alarms/batch", batch[:2], false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCancelAllAlarms(t *testing.T) {
	s := &fakeScheduler{scheduled: []alarm.Request{{ID: 1}, {ID: 2}}}
	r := newDeviceRouter(t, s)

	w := do(r, http.MethodDelete, "/alarms", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"All alarms cancelled","cancelled":2}`, w.Body.String())

	w = do(r, http.MethodDelete, "/alarms", nil, false)
	assert.JSONEq(t, `{"status":"All alarms cancelled","cancelled":0}`, w.Body.String())
}

func TestPrayerTimes(t *testing.T) {
	r := newDeviceRouter(t, &fakeScheduler{})

	w := do(r, http.MethodGet, "/widget/prayer-times", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"fajr":"5:30","dhuhr":"12:30","asr":"16:00","maghrib":"19:00","isha":"20:30","nextPrayer":"Subuh","location":""}`, w.Body.String())

	w = do(r, http.MethodPut, "/widget/prayer-times", map[string]string{"fajr": "5:52", "nextPrayer": "Zohor", "location": "Shah Alam"}, false)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/widget/prayer-times", nil, false)
	assert.JSONEq(t, `{"fajr":"5:52","dhuhr":"12:30","asr":"16:00","maghrib":"19:00","isha":"20:30","nextPrayer":"Zohor","location":"Shah Alam"}`, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/widget/prayer-times", `[1,2]`, false).Code)
}
