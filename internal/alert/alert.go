package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prayer-alerts/config"
)

// Channel describes the category prayer alerts are posted under.
type Channel struct {
	ID          string
	Name        string
	Description string
	Category    string
	Critical    bool
}

// PrayerChannel is the high-importance alarm channel for prayer alerts.
var PrayerChannel = Channel{
	ID:          "adhan_channel",
	Name:        "Azan Notifications",
	Description: "Notifications for prayer times and adhan",
	Category:    "x-prayer.alarm",
	Critical:    true,
}

// Alert is one visible notification.
type Alert struct {
	Channel Channel
	Title   string
	Body    string
	// Expire dismisses the alert automatically after this long.
	Expire time.Duration
}

// Surface displays alerts on the host.
type Surface interface {
	CreateChannel(ctx context.Context, ch Channel) error
	Post(ctx context.Context, a Alert) error
}

// Notifier posts prayer-time alerts.
type Notifier struct {
	surface     Surface
	channel     Channel
	titleFormat string
	expire      time.Duration

	once       sync.Once
	channelErr error

	log zerolog.Logger
}

// NewNotifier creates a notifier posting through surface.
func NewNotifier(surface Surface, cfg config.AlertConfig, log zerolog.Logger) *Notifier {
	return &Notifier{
		surface:     surface,
		channel:     PrayerChannel,
		titleFormat: cfg.TitleFormat,
		expire:      time.Duration(cfg.ExpireSeconds) * time.Second,
		log:         log.With().Str("component", "alert").Logger(),
	}
}

// EnsureChannel creates the alert channel on first use only.
func (n *Notifier) EnsureChannel(ctx context.Context) error {
	n.once.Do(func() {
		n.channelErr = n.surface.CreateChannel(ctx, n.channel)
	})
	return n.channelErr
}

// PostPrayerAlert shows "<title format> <displayName>" as one alert.
func (n *Notifier) PostPrayerAlert(ctx context.Context, displayName string) error {
	if err := n.EnsureChannel(ctx); err != nil {
		n.log.Warn().Err(err).Str("channel", n.channel.ID).Msg("alert channel unavailable; posting anyway")
	}

	a := Alert{
		Channel: n.channel,
		Title:   fmt.Sprintf(n.titleFormat, displayName),
		Expire:  n.expire,
	}
	if err := n.surface.Post(ctx, a); err != nil {
		return fmt.Errorf("post prayer alert: %w", err)
	}
	n.log.Info().Str("title", a.Title).Msg("prayer alert posted")
	return nil
}
