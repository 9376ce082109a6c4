package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// MaxVolume is full output level for SetVolume.
const MaxVolume = 1.0

// Resource is one acquired playback stream.
type Resource interface {
	SetVolume(v float64) error
	Start(ctx context.Context) error
	Wait() error
	Release() error
}

// Backend opens playback streams on the alarm audio route.
type Backend interface {
	Acquire(file string) (Resource, error)
}

// Player plays the call to prayer. It holds at most one Resource at a time.
type Player struct {
	mu          sync.Mutex
	backend     Backend
	assets      Assets
	defaultTone string
	log         zerolog.Logger
}

// NewPlayer creates a player.
func NewPlayer(backend Backend, assets Assets, defaultTone string, log zerolog.Logger) *Player {
	return &Player{
		backend:     backend,
		assets:      assets,
		defaultTone: defaultTone,
		log:         log.With().Str("component", "audio_player").Logger(),
	}
}

// PlayForPrayer plays the prayer's asset at full volume until it finishes.
// If that fails the default tone is tried once; the primary asset is never
// retried.
func (p *Player) PlayForPrayer(ctx context.Context, prayerName string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	file := p.assets.Resolve(prayerName)
	err := p.play(ctx, file)
	if err == nil {
		return nil
	}
	p.log.Warn().Err(err).Str("file", file).Msg("call to prayer failed; playing default tone")

	fallbackErr := p.play(ctx, p.defaultTone)
	if fallbackErr == nil {
		return nil
	}
	return errors.Join(
		fmt.Errorf("play %s: %w", file, err),
		fmt.Errorf("play default tone %s: %w", p.defaultTone, fallbackErr),
	)
}

func (p *Player) play(ctx context.Context, file string) error {
	res, err := p.backend.Acquire(file)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	defer func() {
		if err := res.Release(); err != nil {
			p.log.Warn().Err(err).Str("file", file).Msg("failed to release playback resource")
		}
	}()

	if err := res.SetVolume(MaxVolume); err != nil {
		return fmt.Errorf("set volume: %w", err)
	}
	if err := res.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	if err := res.Wait(); err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}
