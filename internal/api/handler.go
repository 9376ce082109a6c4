package api

import (
	"context"

	"github.com/rs/zerolog"

	"prayer-alerts/internal/notification"
	"prayer-alerts/internal/store"
)

// Dispatcher runs an on-demand dispatch pass.
type Dispatcher interface {
	DispatchOnce(ctx context.Context) (notification.Stats, error)
}

// Handler holds shared dependencies for the dispatch server's handlers.
type Handler struct {
	store      store.Store
	publicKey  string
	dispatcher Dispatcher
	log        zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, vapidPublicKey string, d Dispatcher, log zerolog.Logger) *Handler {
	return &Handler{
		store:      s,
		publicKey:  vapidPublicKey,
		dispatcher: d,
		log:        log.With().Str("component", "api").Logger(),
	}
}
