package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/inquiry-notifier-service/internal/config"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/gateway"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/httpserver"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/logging"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/queue"
	"github.com/PratikDhanave/inquiry-notifier-service/internal/store"
)

// main boots the service: config → logger → store → queue → gateway → HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info", "json", os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	st, err := store.Open(ctx, store.Options{
		Backend:    cfg.StoreBackend,
		ProjectID:  cfg.ProjectID,
		Collection: cfg.Collection,
		DBURL:      cfg.DBURL,
		SQLitePath: cfg.SQLitePath,
		RedisURL:   cfg.RedisURL,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	q, err := openQueue(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer q.Close()

	if cfg.SolapiAPIKey == "" || cfg.SolapiAPISecret == "" || cfg.SolapiSender == "" {
		log.Warn().Msg("SOLAPI credentials incomplete; /send-sms will fail until they are set")
	}
	renderer, err := gateway.NewRenderer(cfg.MessageTemplate)
	if err != nil {
		return err
	}
	sender := gateway.NewSolapiClient(cfg.SolapiAPIKey, cfg.SolapiAPISecret, cfg.SolapiBaseURL, cfg.GatewayRatePerSec)

	router := httpserver.NewRouter(httpserver.Deps{
		Store:         st,
		Queue:         q,
		Sender:        sender,
		Renderer:      renderer,
		Logger:        log,
		DispatchURL:   cfg.DispatchURL(),
		DispatchToken: cfg.DispatchToken,
		SMSSender:     cfg.SolapiSender,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.StoreBackend).
			Str("queue", cfg.QueueBackend).
			Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info().Msg("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openQueue(ctx context.Context, cfg config.Config, log zerolog.Logger) (queue.Enqueuer, error) {
	if cfg.QueueBackend == "local" {
		return queue.NewLocalQueue(queue.LocalOptions{
			Workers:     cfg.LocalQueueWorkers,
			MaxAttempts: cfg.LocalQueueMaxAttempts,
			Logger:      log.With().Str("component", "local_queue").Logger(),
		}), nil
	}
	return queue.NewCloudTasksQueue(ctx, cfg.ProjectID, cfg.QueueLocation, cfg.QueueID)
}
