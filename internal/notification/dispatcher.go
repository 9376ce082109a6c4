package notification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"prayer-alerts/internal/model"
	"prayer-alerts/internal/push"
)

// workStore is the slice of the pending-work store a dispatch pass needs.
type workStore interface {
	DueReminders(ctx context.Context, now time.Time) ([]model.ScheduledNotification, error)
	PendingImmediate(ctx context.Context) ([]model.AdminNotification, error)
	DueScheduled(ctx context.Context, now time.Time) ([]model.AdminNotification, error)
	RecipientTokens(ctx context.Context) ([]string, error)
	IsPending(ctx context.Context, kind model.Kind, id string) (bool, error)
	MarkSent(ctx context.Context, kind model.Kind, id string, at time.Time) (bool, error)
	DeleteTokens(ctx context.Context, tokens []string) (int64, error)
}

// Options holds the payload templates and per-item limits of a pass.
type Options struct {
	ReminderTitle     string
	ReminderBody      string
	AdminDefaultTitle string
	SendTimeout       time.Duration
}

// Stats summarizes one dispatch pass.
type Stats struct {
	Due     int `json:"due"`
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

type outcome int

const (
	outcomeSent outcome = iota
	outcomeSkipped
	outcomeFailed
)

// item is a pending document of any kind, normalized for sending.
// A nil tokens slice means broadcast to the full token set.
type item struct {
	id     string
	kind   model.Kind
	title  string
	body   string
	data   map[string]string
	tokens []string
}

// Dispatcher runs dispatch passes over the pending-work store.
//
// Idempotency rests on the persisted sent flag alone: it is re-read right
// before sending and set right after. Overlapping passes can both observe
// a pending item and both send it; that duplicate is tolerated.
type Dispatcher struct {
	store   workStore
	gateway push.Gateway
	pool    *WorkerPool
	opts    Options
	now     func() time.Time
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(s workStore, g push.Gateway, pool *WorkerPool, opts Options, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		store:   s,
		gateway: g,
		pool:    pool,
		opts:    opts,
		now:     time.Now,
		log:     log.With().Str("component", "dispatcher").Logger(),
	}
}

// WithClock overrides the source of the pass snapshot.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// Start launches the worker pool items are fanned out on.
func (d *Dispatcher) Start(ctx context.Context) {
	d.pool.Start(ctx)
}

// DispatchOnce performs one pass over all pending item kinds. Load errors
// are returned joined, but never stop the kinds that did load.
func (d *Dispatcher) DispatchOnce(ctx context.Context) (Stats, error) {
	now := d.now().UTC()

	var (
		items   []item
		loadErr []error
	)

	reminders, err := d.store.DueReminders(ctx, now)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to load live event reminders")
		loadErr = append(loadErr, err)
	}
	for _, r := range reminders {
		items = append(items, d.reminderItem(r))
	}

	immediate, err := d.store.PendingImmediate(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to load immediate admin notifications")
		loadErr = append(loadErr, err)
	}
	for _, n := range immediate {
		items = append(items, d.adminItem(n))
	}

	scheduled, err := d.store.DueScheduled(ctx, now)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to load scheduled admin notifications")
		loadErr = append(loadErr, err)
	}
	for _, n := range scheduled {
		items = append(items, d.adminItem(n))
	}

	if len(items) == 0 {
		return Stats{}, errors.Join(loadErr...)
	}

	broadcast, err := d.store.RecipientTokens(ctx)
	if err != nil {
		d.log.Warn().Err(err).Msg("failed to load recipient tokens; broadcast items stay pending")
		loadErr = append(loadErr, err)
		broadcast = nil
	}

	stats := Stats{Due: len(items)}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	record := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeSent:
			stats.Sent++
		case outcomeSkipped:
			stats.Skipped++
		default:
			stats.Failed++
		}
	}

	for _, it := range items {
		wg.Add(1)
		accepted := d.pool.Dispatch(ctx, func(ctx context.Context) {
			defer wg.Done()
			record(d.process(ctx, it, broadcast, now))
		})
		if !accepted {
			wg.Done()
			record(outcomeFailed)
		}
	}
	wg.Wait()

	return stats, errors.Join(loadErr...)
}

func (d *Dispatcher) reminderItem(r model.ScheduledNotification) item {
	body := r.Message
	if body == "" {
		body = d.opts.ReminderBody
	}
	return item{
		id:    r.ID,
		kind:  model.KindLiveEventReminder,
		title: d.opts.ReminderTitle,
		body:  body,
	}
}

func (d *Dispatcher) adminItem(n model.AdminNotification) item {
	title := n.Title
	if title == "" {
		title = d.opts.AdminDefaultTitle
	}
	return item{
		id:     n.ID,
		kind:   n.Type.Kind(),
		title:  title,
		body:   n.Body,
		data:   n.Data,
		tokens: n.Tokens,
	}
}

// process sends and marks a single item. Every failure is contained here.
func (d *Dispatcher) process(ctx context.Context, it item, broadcast []string, now time.Time) outcome {
	log := d.log.With().Str("kind", string(it.kind)).Str("id", it.id).Logger()

	recipients := it.tokens
	if len(recipients) == 0 {
		recipients = broadcast
	}
	if len(recipients) == 0 {
		log.Debug().Msg("no recipient tokens; leaving item pending")
		return outcomeSkipped
	}

	pending, err := d.store.IsPending(ctx, it.kind, it.id)
	if err != nil {
		log.Error().Err(err).Msg("failed to re-check sent flag")
		return outcomeFailed
	}
	if !pending {
		log.Debug().Msg("item already sent by another pass")
		return outcomeSkipped
	}

	sendCtx, cancel := ctx, context.CancelFunc(func() {})
	if d.opts.SendTimeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, d.opts.SendTimeout)
	}
	resp, err := d.gateway.Send(sendCtx, push.Message{
		Title:  it.title,
		Body:   it.body,
		Data:   it.data,
		Tokens: recipients,
	})
	cancel()
	if err != nil {
		log.Warn().Err(err).Int("recipients", len(recipients)).Msg("push send failed; item stays pending")
		return outcomeFailed
	}

	if resp.FailureCount > 0 {
		log.Warn().Int("success", resp.SuccessCount).Int("failure", resp.FailureCount).Msg("some recipients were not reached")
		d.pruneExpired(ctx, resp, log)
	}

	marked, err := d.store.MarkSent(ctx, it.kind, it.id, now)
	if err != nil {
		log.Error().Err(err).Msg("failed to mark item sent; it will be sent again next pass")
		return outcomeFailed
	}
	if !marked {
		log.Debug().Msg("item was marked by a concurrent pass")
	}

	log.Info().Int("recipients", len(recipients)).Int("success", resp.SuccessCount).Msg("notification sent")
	return outcomeSent
}

func (d *Dispatcher) pruneExpired(ctx context.Context, resp *push.BatchResponse, log zerolog.Logger) {
	expired := resp.ExpiredTokens()
	if len(expired) == 0 {
		return
	}
	n, err := d.store.DeleteTokens(ctx, expired)
	if err != nil {
		log.Warn().Err(err).Msg("failed to delete expired tokens")
		return
	}
	log.Info().Int64("deleted", n).Msg("deleted expired tokens")
}
