package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/draftroom/internal/catalog"
	"github.com/mcdev12/draftroom/internal/gateway"
	"github.com/mcdev12/draftroom/internal/league"
	"github.com/mcdev12/draftroom/internal/ledger"
	"github.com/mcdev12/draftroom/internal/outbox"
	"github.com/mcdev12/draftroom/internal/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found, using environment variables")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if getEnv("LOG_PRETTY", "") != "" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	var cfg *Config
	if path := getEnv("CONFIG_PATH", ""); path != "" {
		var err error
		cfg, err = loadConfig(path)
		if err != nil {
			log.Fatal().Err(err).Str("path", path).Msg("failed to load config")
		}
	}

	dbCfg := loadDatabaseConfig()
	db, err := setupDatabase(dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup database")
	}
	defer db.Close()
	log.Info().Str("database", dbCfg.Database).Msg("connected to database")

	outboxRepo := outbox.NewRepository(db)

	publisherCfg := outbox.DefaultJetStreamPublisherConfig()
	publisherCfg.URL = getEnv("NATS_URL", publisherCfg.URL)
	if cfg != nil && cfg.NATS.URL != "" {
		publisherCfg.URL = cfg.NATS.URL
	}
	if cfg != nil && cfg.NATS.StreamName != "" {
		publisherCfg.StreamName = cfg.NATS.StreamName
	}
	publisher, err := outbox.NewJetStreamPublisher(publisherCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create JetStream publisher")
	}
	defer publisher.Close()

	listenerCfg := outbox.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	if cfg != nil && cfg.Outbox.FallbackIntervalSeconds > 0 {
		listenerCfg.FallbackInterval = time.Duration(cfg.Outbox.FallbackIntervalSeconds) * time.Second
	}
	if cfg != nil && cfg.Outbox.BatchSize > 0 {
		listenerCfg.BatchSize = cfg.Outbox.BatchSize
	}
	listener, err := outbox.NewListener(outboxRepo, publisher, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create outbox listener")
	}

	leagueRepo := league.NewRepository(db)
	registry := session.NewRegistry(session.Deps{
		Clock:     clockwork.NewRealClock(),
		Sink:      outbox.NewSink(outboxRepo),
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		Leagues:   leagueRepo,
		Picks:     leagueRepo,
		Catalog:   catalog.NewRepository(db),
		Contracts: ledger.NewPostgresContractRepository(db),
		Logger:    log.Logger,
	})

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.JetStreamConfig.URL = publisherCfg.URL
	gatewayCfg.JetStreamConfig.StreamName = publisherCfg.StreamName
	gatewayService, err := gateway.NewService(gatewayCfg, registry)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create gateway service")
	}

	server := setupHTTPServer(gatewayService)
	if cfg != nil && cfg.Server.Port != "" {
		server.Addr = ":" + cfg.Server.Port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return listener.Start(ctx)
	})

	g.Go(func() error {
		return gatewayService.Start(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
	log.Info().Msg("server stopped")
}
