package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/whisperstudio/chat-backend/internal/config"
	"github.com/whisperstudio/chat-backend/internal/db"
	"github.com/whisperstudio/chat-backend/internal/events"
	"github.com/whisperstudio/chat-backend/internal/feed"
	httpapi "github.com/whisperstudio/chat-backend/internal/http"
	"github.com/whisperstudio/chat-backend/internal/responder"
	"github.com/whisperstudio/chat-backend/internal/service"
	"github.com/whisperstudio/chat-backend/internal/session"
	"github.com/whisperstudio/chat-backend/internal/settings"
	"github.com/whisperstudio/chat-backend/internal/tickets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "chat-backend").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var bus feed.Feed
	if cfg.RedisURL != "" {
		client, err := feed.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		bus = feed.NewRedisFeed(client, logger)
	} else {
		bus = feed.NewMemoryFeed()
		logger.Info().Msg("using in-process feed")
	}

	settingsCh := settings.NewChannel(bus, logger)
	settingsCh.Start(ctx)
	defer settingsCh.Close()

	records := session.NewRecords(store, bus, logger)

	var gateway responder.Gateway
	if cfg.ResponderURL == "" {
		gateway = responder.MockGateway{}
		logger.Info().Msg("using mock responder")
	} else {
		gateway = responder.HTTPGateway{BaseURL: cfg.ResponderURL, Timeout: cfg.ResponderTimeout}
	}

	producer := events.NewProducer(events.ParseBrokers(cfg.KafkaBrokers), cfg.KafkaTopic, logger)
	defer producer.Close()

	pipeline := &service.Pipeline{
		Store:            store,
		Sessions:         records,
		Settings:         settingsCh,
		Responder:        gateway,
		Events:           producer,
		Logger:           logger,
		WaitScanLimit:    cfg.WaitScanLimit,
		ResponderTimeout: cfg.ResponderTimeout,
	}

	bridge := &tickets.Bridge{Store: store, Events: producer, Logger: logger}

	router := httpapi.Router(cfg, store, pipeline, records, settingsCh, bridge, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
