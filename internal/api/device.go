package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"prayer-alerts/internal/alarm"
	"prayer-alerts/internal/mw"
	"prayer-alerts/internal/widget"
)

// AlarmScheduler registers and cancels device alarms.
type AlarmScheduler interface {
	Schedule(req alarm.Request) error
	CancelAll() int
}

// WidgetStore persists the display prayer times.
type WidgetStore interface {
	Load() (widget.PrayerTimes, error)
	Save(p widget.PrayerTimes) (widget.PrayerTimes, error)
}

// DeviceHandler serves the alarm daemon's local API.
type DeviceHandler struct {
	alarms AlarmScheduler
	widget WidgetStore
	log    zerolog.Logger
}

// NewDeviceHandler creates the device API handler.
func NewDeviceHandler(alarms AlarmScheduler, w WidgetStore, log zerolog.Logger) *DeviceHandler {
	return &DeviceHandler{
		alarms: alarms,
		widget: w,
		log:    log.With().Str("component", "device_api").Logger(),
	}
}

// NewDeviceRouter creates the alarm daemon's router.
func NewDeviceRouter(h *DeviceHandler, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(log))

	r.POST("/alarms", h.ScheduleAlarm)
	r.POST("/alarms/batch", h.ScheduleAlarms)
	r.DELETE("/alarms", h.CancelAllAlarms)
	r.GET("/widget/prayer-times", h.GetPrayerTimes)
	r.PUT("/widget/prayer-times", h.PutPrayerTimes)

	return r
}

// ScheduleAlarm registers one alarm.
func (h *DeviceHandler) ScheduleAlarm(c *gin.Context) {
	var req alarm.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.alarms.Schedule(req); err != nil {
		h.log.Error().Err(err).Int("alarm_id", req.ID).Msg("failed to schedule alarm")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Alarm scheduled"})
}

type batchResult struct {
	AlarmID int    `json:"alarmId"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ScheduleAlarms registers a list of alarms in order. One failure does not
// stop the rest.
func (h *DeviceHandler) ScheduleAlarms(c *gin.Context) {
	var reqs []alarm.Request
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := make([]batchResult, 0, len(reqs))
	failed := 0
	for _, req := range reqs {
		err := req.Validate()
		if err == nil {
			err = h.alarms.Schedule(req)
		}
		if err != nil {
			h.log.Error().Err(err).Int("alarm_id", req.ID).Msg("failed to schedule alarm")
			results = append(results, batchResult{AlarmID: req.ID, Error: err.Error()})
			failed++
			continue
		}
		results = append(results, batchResult{AlarmID: req.ID, Status: "Alarm scheduled"})
	}

	status := http.StatusOK
	if failed > 0 {
		status = http.StatusMultiStatus
	}
	c.JSON(status, gin.H{"results": results})
}

// CancelAllAlarms cancels every alarm in the sweep range.
func (h *DeviceHandler) CancelAllAlarms(c *gin.Context) {
	n := h.alarms.CancelAll()
	c.JSON(http.StatusOK, gin.H{"status": "All alarms cancelled", "cancelled": n})
}

// GetPrayerTimes returns the stored display values.
func (h *DeviceHandler) GetPrayerTimes(c *gin.Context) {
	p, err := h.widget.Load()
	if err != nil {
		h.log.Warn().Err(err).Msg("widget store unreadable; serving defaults")
	}
	c.JSON(http.StatusOK, p)
}

// PutPrayerTimes replaces the stored display values.
func (h *DeviceHandler) PutPrayerTimes(c *gin.Context) {
	var p widget.PrayerTimes
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := h.widget.Save(p)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to save widget prayer times")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, saved)
}
