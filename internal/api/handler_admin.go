package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prayer-alerts/internal/model"
	"prayer-alerts/internal/parse"
	"prayer-alerts/internal/store"
)

type createAdminNotificationRequest struct {
	Type          model.AdminType   `json:"type" binding:"required,oneof=immediate scheduled"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Data          map[string]string `json:"data"`
	Tokens        []string          `json:"tokens"`
	ScheduledTime string            `json:"scheduledTime"`
}

// CreateAdminNotification queues an admin broadcast. Without tokens it goes
// to every registered recipient.
func (h *Handler) CreateAdminNotification(c *gin.Context) {
	var req createAdminNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n := model.AdminNotification{
		Type:  req.Type,
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	}
	if len(req.Tokens) > 0 {
		n.Tokens = req.Tokens
	}

	switch {
	case req.ScheduledTime != "":
		at, err := parse.Timestamp(req.ScheduledTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		n.ScheduledTime = &at
	case req.Type == model.AdminTypeScheduled:
		c.JSON(http.StatusBadRequest, gin.H{"error": "scheduledTime is required for scheduled notifications"})
		return
	}

	if err := h.store.CreateAdminNotification(c.Request.Context(), &n); err != nil {
		h.log.Error().Err(err).Msg("failed to create admin notification")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, n)
}

// GetAdminNotification returns one admin notification with its sent state.
func (h *Handler) GetAdminNotification(c *gin.Context) {
	n, err := h.store.GetAdminNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, err, "notification not found")
		return
	}
	c.JSON(http.StatusOK, n)
}

type createReminderRequest struct {
	ScheduledTime string `json:"scheduledTime" binding:"required"`
	Message       string `json:"message"`
}

// CreateReminder queues a live-event reminder.
func (h *Handler) CreateReminder(c *gin.Context) {
	var req createReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	at, err := parse.Timestamp(req.ScheduledTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	n := model.ScheduledNotification{ScheduledTime: at, Message: req.Message}
	if err := h.store.CreateReminder(c.Request.Context(), &n); err != nil {
		h.log.Error().Err(err).Msg("failed to create reminder")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, n)
}

// GetReminder returns one live-event reminder with its sent state.
func (h *Handler) GetReminder(c *gin.Context) {
	n, err := h.store.GetReminder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.lookupError(c, err, "reminder not found")
		return
	}
	c.JSON(http.StatusOK, n)
}

// TriggerDispatch runs one dispatch pass now. It is safe to call while the
// scheduled passes are running.
func (h *Handler) TriggerDispatch(c *gin.Context) {
	stats, err := h.dispatcher.DispatchOnce(c.Request.Context())
	resp := gin.H{"stats": stats}
	if err != nil {
		h.log.Warn().Err(err).Msg("on-demand dispatch pass had load errors")
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) lookupError(c *gin.Context, err error, notFoundMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundMsg})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
