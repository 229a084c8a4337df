package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/devhub/community-api/internal/api"
	"github.com/devhub/community-api/internal/core/service"
	"github.com/devhub/community-api/internal/infrastructure/config"
	mongodb "github.com/devhub/community-api/internal/infrastructure/db/mongo"
	redisdb "github.com/devhub/community-api/internal/infrastructure/db/redis"
	"github.com/devhub/community-api/internal/infrastructure/queue"
	"github.com/devhub/community-api/internal/pkg/token"
	"github.com/devhub/community-api/pkg/logger"
	"github.com/devhub/community-api/pkg/mailer"
)

// @title        DevHub Community API
// @version      1.0
// @description  Identity and token lifecycle API for the DevHub community platform.
// @BasePath     /
func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Stores ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()

	accountRepo := mongodb.NewAccountRepository(db)
	if err := accountRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("index bootstrap failed")
	}

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer func() { _ = rdb.Close() }()

	// --- Outbound mail: Mailgun behind the sharded dispatcher ---
	sender := mailer.NewMailgun(cfg.Mail.Domain, cfg.Mail.APIKey, cfg.Mail.Sender, cfg.ClientURL)
	dispatcher := queue.NewMailDispatcher(cfg.Mail.Workers, sender, redisdb.NewMailDedup(rdb), log)
	dispatcher.Start(ctx)

	// --- Identity engine ---
	signer := token.NewSigner(cfg.JWTSecret, cfg.AccessTokenTTL)
	identity := service.NewIdentityService(accountRepo, signer, dispatcher, log)

	e := api.NewRouter(identity, db, rdb, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("devhub api listening")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
