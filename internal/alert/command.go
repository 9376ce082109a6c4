package alert

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"prayer-alerts/config"
)

// runFunc executes a notifier binary.
type runFunc func(ctx context.Context, name string, args ...string) error

func runCommand(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// CommandSurface posts by running notify-send or dunstify.
type CommandSurface struct {
	bin     string
	appName string
	icon    string
	run     runFunc
}

// NewCommandSurface finds the first available notifier binary.
func NewCommandSurface(cfg config.AlertConfig) (*CommandSurface, error) {
	for _, name := range []string{"notify-send", "dunstify"} {
		if bin, err := exec.LookPath(name); err == nil {
			return &CommandSurface{bin: bin, appName: cfg.AppName, icon: cfg.Icon, run: runCommand}, nil
		}
	}
	return nil, errors.New("neither notify-send nor dunstify found in PATH")
}

// CreateChannel is a no-op; the channel travels as hints.
func (s *CommandSurface) CreateChannel(context.Context, Channel) error { return nil }

// Post runs the notifier binary.
func (s *CommandSurface) Post(ctx context.Context, a Alert) error {
	args := []string{
		"-a", s.appName,
		"-t", strconv.FormatInt(a.Expire.Milliseconds(), 10),
		"-h", "string:category:" + a.Channel.Category,
	}
	if a.Channel.Critical {
		args = append(args, "-u", "critical")
	}
	if s.icon != "" {
		args = append(args, "-i", s.icon)
	}
	args = append(args, a.Title)
	if a.Body != "" {
		args = append(args, a.Body)
	}
	if err := s.run(ctx, s.bin, args...); err != nil {
		return fmt.Errorf("%s: %w", s.bin, err)
	}
	return nil
}

// LogSurface writes alerts to the log when no desktop is reachable.
type LogSurface struct {
	Log zerolog.Logger
}

func (s LogSurface) CreateChannel(context.Context, Channel) error { return nil }

func (s LogSurface) Post(_ context.Context, a Alert) error {
	s.Log.Warn().Str("channel", a.Channel.ID).Str("title", a.Title).Msg("ALERT")
	return nil
}

// NewSurface prefers the session bus, then a notifier binary, then the log.
func NewSurface(cfg config.AlertConfig, log zerolog.Logger) Surface {
	s, err := NewDBusSurface(cfg)
	if err == nil {
		return s
	}
	log.Warn().Err(err).Msg("session bus unavailable; trying notifier commands")

	cs, err := NewCommandSurface(cfg)
	if err == nil {
		return cs
	}
	log.Warn().Err(err).Msg("no desktop notifier available; alerts go to the log")
	return LogSurface{Log: log}
}
