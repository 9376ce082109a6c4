package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"prayer-alerts/config"
	"prayer-alerts/internal/mw"
)

// NewRouter creates the dispatch server's router.
func NewRouter(h *Handler, cfg config.ServerConfig, log zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), mw.RequestLogger(log))

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	caching := mw.Cache(cache.New(ttl, 2*ttl), ttl)

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/vapid_public_key", caching, h.GetVAPIDPublicKey)
		api.PUT("/tokens", h.PutToken)
		api.DELETE("/tokens", h.DeleteToken)

		admin := api.Group("/admin")
		admin.Use(mw.APIKey(cfg.AdminAPIKey))
		{
			admin.POST("/notifications", h.CreateAdminNotification)
			admin.GET("/notifications/:id", h.GetAdminNotification)
			admin.POST("/reminders", h.CreateReminder)
			admin.GET("/reminders/:id", h.GetReminder)
			admin.POST("/dispatch", h.TriggerDispatch)
		}
	}

	return r
}
