package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"prayer-alerts/config"
)

// Sender defines the interface for delivering a single web push message.
type Sender interface {
	Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(ctx context.Context, payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotificationWithContext(ctx, payload, sub, options)
}

// WebPushGateway implements Gateway over Web Push (VAPID). Each token is
// the JSON form of a browser PushSubscription.
type WebPushGateway struct {
	options     *webpush.Options
	sender      Sender
	limiter     *rate.Limiter
	concurrency int
	log         zerolog.Logger
}

// NewWebPushGateway builds a gateway from the push configuration.
func NewWebPushGateway(cfg config.PushConfig, log zerolog.Logger) *WebPushGateway {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	return &WebPushGateway{
		options: &webpush.Options{
			VAPIDPublicKey:  cfg.PublicKey,
			VAPIDPrivateKey: cfg.PrivateKey,
			Subscriber:      cfg.Subject,
			TTL:             cfg.TTL,
			Urgency:         webpush.Urgency(cfg.Urgency),
		},
		sender:      &WebPushSender{},
		limiter:     rate.NewLimiter(limit, concurrency),
		concurrency: concurrency,
		log:         log.With().Str("component", "webpush").Logger(),
	}
}

// WithSender replaces the delivery backend.
func (g *WebPushGateway) WithSender(s Sender) *WebPushGateway {
	g.sender = s
	return g
}

// PublicKey returns the VAPID public key clients subscribe with.
func (g *WebPushGateway) PublicKey() string {
	return g.options.VAPIDPublicKey
}

// Send delivers msg to every token. It fails as a whole only when the
// gateway is misconfigured, the context ends, or no recipient could be
// reached at the transport level.
func (g *WebPushGateway) Send(ctx context.Context, msg Message) (*BatchResponse, error) {
	if g.options.VAPIDPublicKey == "" || g.options.VAPIDPrivateKey == "" {
		return nil, fmt.Errorf("%w: vapid keys are not configured", ErrUnavailable)
	}
	if len(msg.Tokens) == 0 {
		return &BatchResponse{}, nil
	}

	payload, err := json.Marshal(Payload{
		Notification: Notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	results := make([]SendResult, len(msg.Tokens))
	transport := make([]bool, len(msg.Tokens))

	var eg errgroup.Group
	eg.SetLimit(g.concurrency)
	for i, token := range msg.Tokens {
		eg.Go(func() error {
			if err := g.limiter.Wait(ctx); err != nil {
				results[i] = SendResult{Token: token, Err: err}
				transport[i] = true
				return nil
			}
			results[i], transport[i] = g.sendOne(ctx, token, payload)
			return nil
		})
	}
	_ = eg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	resp := &BatchResponse{Responses: results}
	unreachable := 0
	for i, r := range results {
		if r.Delivered() {
			resp.SuccessCount++
			continue
		}
		resp.FailureCount++
		if transport[i] {
			unreachable++
		}
		g.log.Debug().Err(r.Err).Int("status", r.StatusCode).Msg("recipient delivery failed")
	}

	if unreachable == len(results) {
		return nil, fmt.Errorf("%w: all %d recipients unreachable: %w", ErrUnavailable, unreachable, results[0].Err)
	}
	return resp, nil
}

// sendOne delivers to a single token. The second result is true when the
// failure happened before any push service answered.
func (g *WebPushGateway) sendOne(ctx context.Context, token string, payload []byte) (SendResult, bool) {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(token), &sub); err != nil {
		return SendResult{Token: token, Err: fmt.Errorf("decode subscription: %w", err)}, false
	}
	if sub.Endpoint == "" {
		return SendResult{Token: token, Err: errors.New("subscription has no endpoint")}, false
	}

	resp, err := g.sender.Send(ctx, payload, &sub, g.options)
	if err != nil {
		return SendResult{Token: token, Err: err}, true
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendResult{
			Token:      token,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("push service returned %d", resp.StatusCode),
		}, false
	}
	return SendResult{Token: token, StatusCode: resp.StatusCode}, false
}
