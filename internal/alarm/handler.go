package alarm

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// AudioPlayer plays the call to prayer for a prayer id.
type AudioPlayer interface {
	PlayForPrayer(ctx context.Context, prayerName string) error
}

// AlertPoster shows the visible prayer-time alert.
type AlertPoster interface {
	PostPrayerAlert(ctx context.Context, displayName string) error
}

// Handler reacts to fired alarms. It holds no per-alarm state.
type Handler struct {
	ctx   context.Context
	audio AudioPlayer
	alert AlertPoster
	log   zerolog.Logger
}

// NewHandler creates a trigger handler. ctx bounds playback and alert
// posting for the daemon's lifetime.
func NewHandler(ctx context.Context, audio AudioPlayer, alert AlertPoster, log zerolog.Logger) *Handler {
	return &Handler{
		ctx:   ctx,
		audio: audio,
		alert: alert,
		log:   log.With().Str("component", "alarm_handler").Logger(),
	}
}

// Fire runs audio playback and the visible alert concurrently and waits for
// both. Failures are logged; neither track affects the other.
func (h *Handler) Fire(req Request) {
	log := h.log.With().Int("alarm_id", req.ID).Str("prayer", req.PrayerName).Logger()
	log.Info().Msg("alarm fired")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := h.audio.PlayForPrayer(h.ctx, req.PrayerName); err != nil {
			log.Error().Err(err).Msg("call to prayer playback failed")
		}
	}()
	go func() {
		defer wg.Done()
		if err := h.alert.PostPrayerAlert(h.ctx, req.PrayerDisplayName); err != nil {
			log.Error().Err(err).Msg("failed to post prayer alert")
		}
	}()
	wg.Wait()
}
