package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
)

// tokenRequest is a browser PushSubscription as produced by
// PushSubscription.toJSON().
type tokenRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys"`
}

// token is the canonical stored form, so re-registering the same
// subscription never creates a second row.
func (r tokenRequest) token() string {
	b, _ := json.Marshal(r)
	return string(b)
}

// PutToken registers a recipient token.
func (h *Handler) PutToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.UpsertToken(c.Request.Context(), req.token()); err != nil {
		h.log.Error().Err(err).Msg("failed to register token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

// DeleteToken unregisters a recipient token.
func (h *Handler) DeleteToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.DeleteToken(c.Request.Context(), req.token()); err != nil {
		h.log.Error().Err(err).Msg("failed to delete token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
