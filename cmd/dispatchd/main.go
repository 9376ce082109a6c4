// Command dispatchd runs the push notification dispatch worker and its
// admin API.
//
// Usage:
//
//	dispatchd serve --config ./config/config.yaml
//	dispatchd dispatch
//	dispatchd migrate
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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"prayer-alerts/config"
	"prayer-alerts/internal/api"
	"prayer-alerts/internal/db"
	"prayer-alerts/internal/logging"
	"prayer-alerts/internal/notification"
	"prayer-alerts/internal/push"
	"prayer-alerts/internal/store"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "dispatchd",
		Short:         "Push notification dispatch worker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath(), "path to the YAML config file")

	root.AddCommand(serveCmd(&configPath))
	root.AddCommand(dispatchCmd(&configPath))
	root.AddCommand(migrateCmd(&configPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dispatchd:", err)
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "./config/config.yaml"
}

// app bundles what every subcommand needs.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store store.Store
}

func setup(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}
	log := logging.New(cfg.Log).With().Str("service", "dispatchd").Logger()
	log.Info().Str("path", configPath).Msg("configuration loaded")

	gormDB, err := db.Init(&cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return &app{cfg: cfg, log: log, store: store.NewGormStore(gormDB)}, nil
}

func (a *app) dispatcher() *notification.Dispatcher {
	gateway := push.NewWebPushGateway(a.cfg.Push, a.log)
	if gateway.PublicKey() == "" {
		a.log.Warn().Msg("VAPID keys are not configured; every send will fail and items stay pending")
	}
	pool := notification.NewWorkerPool(a.cfg.WorkerPool.Size, a.log)
	return notification.NewDispatcher(a.store, gateway, pool, notification.Options{
		ReminderTitle:     a.cfg.Dispatch.ReminderTitle,
		ReminderBody:      a.cfg.Dispatch.ReminderBody,
		AdminDefaultTitle: a.cfg.Dispatch.AdminDefaultTitle,
		SendTimeout:       a.cfg.Push.SendTimeout,
	}, a.log)
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled dispatch passes and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			return a.serve()
		},
	}
}

func (a *app) serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := a.dispatcher()
	svc := notification.NewService(a.cfg.Dispatch, d, a.log)

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.NewHandler(a.store, a.cfg.Push.PublicKey, d, a.log), a.cfg.Server, a.log)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.Run(gctx)
	})
	g.Go(func() error {
		a.log.Info().Int("port", a.cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info().Msg("shutdown signal received, stopping services")
		_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn().Err(err).Msg("sd_notify failed")
	} else if ok {
		a.log.Debug().Msg("readiness reported to systemd")
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.log.Info().Msg("server gracefully stopped")
	return nil
}

func dispatchCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Run a single dispatch pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(*configPath)
			if err != nil {
				return err
			}
			stats, err := a.dispatcher().DispatchOnce(cmd.Context())
			a.log.Info().
				Int("due", stats.Due).
				Int("sent", stats.Sent).
				Int("skipped", stats.Skipped).
				Int("failed", stats.Failed).
				Msg("dispatch pass finished")
			return err
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := setup(*configPath)
			return err
		},
	}
}
