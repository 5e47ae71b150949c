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

	"github.com/spf13/cobra"
	"github.com/vmorsell/app-mixer/internal/config"
	"github.com/vmorsell/app-mixer/internal/handlers"
	"github.com/vmorsell/app-mixer/internal/logging"
	"github.com/vmorsell/app-mixer/internal/ratelimit"
	"github.com/vmorsell/app-mixer/internal/volume"
	"github.com/vmorsell/app-mixer/internal/wsserver"
	"github.com/vmorsell/app-mixer/pkg/model"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 5 * time.Second

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:          "mixerd",
	Short:        "Serve the audio mixer over WebSocket",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		logger, err := logging.New(cfg.LogLevel, false)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return serve(ctx, logger, cfg)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file (default is mixer.yaml in the user config dir)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func serve(ctx context.Context, logger *zap.Logger, cfg *config.Config) error {
	controller := volume.New(logger, volume.Options{
		Timeout:     cfg.OperationTimeout,
		PulseServer: cfg.PulseServer,
		ClientName:  cfg.ClientName,
	})
	poller := volume.NewPoller(controller, cfg.PollInterval)
	limiter := ratelimit.New(rate.Limit(cfg.MutationRateLimit), cfg.MutationBurst)

	h := handlers.NewHandler(logger.Named("handlers"), controller, poller, limiter)
	ws := wsserver.New(logger.Named("ws"), h, wsserver.Options{MaxClients: cfg.MaxClients})
	go ws.Run(ctx)

	updates := poller.Listen()
	defer poller.Stop()
	go func() {
		for u := range updates {
			logger.Debug("sessions changed",
				zap.Strings("added", u.Added),
				zap.Strings("removed", u.Removed),
				zap.Strings("changed", u.Changed),
			)
			msg := model.SessionsMessage{Type: model.MessageTypeSessions, Sessions: u.Sessions}
			if err := ws.Broadcast(msg); err != nil {
				logger.Error("failed to broadcast sessions", zap.Error(err))
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", ws)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mixer daemon started", zap.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server exited")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
