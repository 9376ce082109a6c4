// Command alarmd is the device-side prayer alarm daemon. It exposes a
// localhost API to schedule and cancel alarms and to sync the display
// prayer times, and plays the call to prayer when an alarm fires.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"prayer-alerts/config"
	"prayer-alerts/internal/alarm"
	"prayer-alerts/internal/alert"
	"prayer-alerts/internal/api"
	"prayer-alerts/internal/audio"
	"prayer-alerts/internal/logging"
	"prayer-alerts/internal/widget"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "alarmd",
		Short:         "Prayer time alarm daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the alarm daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "alarmd:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	log := logging.New(cfg.Log).With().Str("service", "alarmd").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	player := audio.NewPlayer(audio.NewExecBackend(cfg.Audio.Command), audio.NewAssets(cfg.Audio), cfg.Audio.DefaultTone, log)
	surface := alert.NewSurface(cfg.Alert, log)
	if c, ok := surface.(interface{ Close() error }); ok {
		defer c.Close()
	}
	notifier := alert.NewNotifier(surface, cfg.Alert, log)
	if err := notifier.EnsureChannel(ctx); err != nil {
		log.Warn().Err(err).Msg("alert channel setup failed")
	}

	handler := alarm.NewHandler(ctx, player, notifier, log)
	table := alarm.NewPlatformTable(handler.Fire, log)
	scheduler := alarm.NewScheduler(table, log)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewDeviceRouter(api.NewDeviceHandler(scheduler, widget.NewFileStore(cfg.Widget.Path), log), log)
	server := &http.Server{Addr: cfg.Device.Listen, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Device.Listen).Msg("device API starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("sd_notify failed")
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("device API: %w", err)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Registrations live in this process; they go away with it.
	cancelled := scheduler.CancelAll()
	log.Info().Int("cancelled", cancelled).Msg("pending alarms dropped")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
