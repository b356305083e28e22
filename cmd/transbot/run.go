package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"transbot/internal/bus"
	"transbot/internal/channel"
	"transbot/internal/config"
	"transbot/internal/detect"
	"transbot/internal/domain"
	"transbot/internal/metrics"
	"transbot/internal/provider"
	"transbot/internal/relay"
	"transbot/internal/telemetry"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the relay (Discord, Telegram, metrics)",
		Long:  "Starts all enabled channels, the relay loop and the metrics server. Press Ctrl+C to stop.",
		RunE:  runRelay,
	}
}

// newController builds the relay controller from config. The detector is
// optional so one-shot commands can skip loading language models.
func newController(ctx context.Context, cfg *config.Config, withDetector bool) (*relay.Controller, domain.Translator, error) {
	translator, err := provider.NewFactory(cfg.Translator, logger).Default(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("translator: %w", err)
	}

	var detector domain.Detector
	if withDetector {
		detector, err = detect.New(ctx, cfg, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("detector: %w", err)
		}
	}

	c := relay.NewController(relay.ControllerConfig{
		Detector:      detector,
		Translator:    translator,
		AllowedScopes: cfg.Relay.AutoTranslateCategories,
		Target:        domain.LanguageCode(cfg.Relay.TargetLanguage),
		Logger:        logger,
	})
	return c, translator, nil
}

func enabledChannels(cfg *config.Config) []domain.Channel {
	var chans []domain.Channel
	if cfg.Channels.Discord.Enabled {
		chans = append(chans, channel.NewDiscord(channel.DiscordConfig{
			Token:   cfg.Channels.Discord.Token,
			GuildID: cfg.Channels.Discord.GuildID,
			Logger:  logger.With("channel", "discord"),
		}))
	}
	if cfg.Channels.Telegram.Enabled {
		chans = append(chans, channel.NewTelegram(channel.TelegramConfig{
			Token:     cfg.Channels.Telegram.Token,
			AllowFrom: cfg.Channels.Telegram.AllowFrom,
			Logger:    logger.With("channel", "telegram"),
		}))
	}
	return chans
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, closeLog, err := loadConfig()
	if err != nil {
		return err
	}
	defer closeLog()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(telemetry.TracingConfig{
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	defer shutdownTracing()

	controller, translator, err := newController(ctx, cfg, true)
	if err != nil {
		return err
	}
	if err := translator.Healthy(ctx); err != nil {
		logger.Warn("translator unhealthy at startup", "provider", translator.Name(), "err", err)
	} else {
		logger.Info("translator healthy", "provider", translator.Name())
	}

	chans := enabledChannels(cfg)
	if len(chans) == 0 {
		return fmt.Errorf("no channels enabled: set DISCORD_TOKEN or TELEGRAM_TOKEN, or enable one in %s", resolveConfigPath())
	}

	messageBus := bus.New(100, logger)
	loop := relay.NewLoop(relay.LoopConfig{
		Controller:  controller,
		Bus:         messageBus,
		Logger:      logger,
		Concurrency: cfg.Relay.Concurrency,
	})
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	// A channel that cannot connect (bad token, missing intent) stops the process.
	var chanErr error
	var errOnce sync.Once
	var wg sync.WaitGroup
	for _, ch := range chans {
		wg.Add(1)
		go func(ch domain.Channel) {
			defer wg.Done()
			if err := ch.Start(ctx, messageBus); err != nil {
				logger.Error("channel error", "channel", ch.Name(), "err", err)
				errOnce.Do(func() {
					chanErr = fmt.Errorf("%s: %w", ch.Name(), err)
					cancel()
				})
			}
		}(ch)
		logger.Info("channel enabled", "channel", ch.Name())
	}

	var srv *http.Server
	if cfg.Metrics.Enabled {
		srv = newMetricsServer(cfg.Metrics)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "addr", cfg.Metrics.Addr, "err", err)
			}
		}()
		logger.Info("metrics server listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
	}

	logger.Info("relay started. Press Ctrl+C to stop.",
		"target", cfg.Relay.TargetLanguage,
		"categories", len(cfg.Relay.AutoTranslateCategories),
	)

	<-ctx.Done()
	logger.Info("shutting down relay...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ch := range chans {
			ch.Stop()
		}
		wg.Wait()
		if srv != nil {
			srv.Shutdown(shutdownCtx)
		}
		messageBus.Close()
		<-loopDone
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out, forcing exit")
		return fmt.Errorf("shutdown timed out")
	}
	return chanErr
}

func newMetricsServer(cfg config.MetricsConfig) *http.Server {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
