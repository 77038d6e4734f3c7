package app

import (
	"context"
	"log"
	"log/slog"
	"os"
	"sync"

	"github.com/langowen/ratepresence/deploy/config"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/api_client/rate_api"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/presence"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/presence/discord"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/storage/postgres"
	"github.com/langowen/ratepresence/internal/rate_updater/adapter/storage/redis"
	"github.com/langowen/ratepresence/internal/rate_updater/metrics"
	"github.com/langowen/ratepresence/internal/rate_updater/ports/http/public"
	"github.com/langowen/ratepresence/internal/rate_updater/updater"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	redisPack "github.com/redis/go-redis/v9"
)

type App struct {
	cfg *config.Config
}

func NewApp(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Start wires the application and runs it until ctx is cancelled.
// The returned channel closes once every component has stopped.
func (a *App) Start(ctx context.Context) <-chan struct{} {
	a.initLogger()
	slog.Info("Logger initialized")

	pgStorage := a.initDatabase(ctx)
	slog.Info("Storage initialized")

	rdStorage := a.initRedis(ctx)

	publisher := a.initPublisher(rdStorage)

	rateUpdater := updater.NewUpdater(
		a.initRateSource(),
		pgStorage,
		updater.WithPublisher(publisher),
		updater.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		updater.WithLabelFormat(a.cfg.Updater.LabelFormat),
	)
	slog.Info("Updater initialized", "interval", a.cfg.Updater.Interval)

	serverDone := public.StartServer(ctx, rateUpdater, a.cfg.HTTPServer)
	slog.Info("server started", "port", a.cfg.HTTPServer.Port)

	var wg sync.WaitGroup

	if a.cfg.Discord.PublishEnabled() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.runGateway(ctx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()

		scheduler := updater.NewScheduler(a.cfg.Updater.Interval, rateUpdater.Tick)
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("scheduler stopped", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		<-serverDone

		pgStorage.Close()
		if rdStorage != nil {
			if err := rdStorage.Close(); err != nil {
				slog.Error("failed to close redis", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func (a *App) initLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: false,
	}))
	slog.SetDefault(logger)
}

func (a *App) initDatabase(ctx context.Context) *postgres.Storage {
	pgStorage, err := postgres.InitStorage(ctx, a.cfg.Storage.DSN(), a.cfg.Storage.Timeout)
	if err != nil {
		log.Fatalln("Failed to initialize PostgresSQL storage", "error", err)
	}

	return pgStorage
}

func (a *App) initRateSource() *rate_api.HTTPClient {
	return rate_api.NewHTTPClient(
		a.cfg.RateAPI.URL,
		a.cfg.RateAPI.Key,
		a.cfg.RateAPI.Field,
		a.cfg.RateAPI.Timeout,
	)
}

// initRedis is optional: a missing or unreachable redis only disables the notifier.
func (a *App) initRedis(ctx context.Context) *redis.Storage {
	if !a.cfg.Redis.Enabled() {
		return nil
	}

	options := &redisPack.Options{
		Addr:     a.cfg.Redis.Addr,
		Password: a.cfg.Redis.Password,
		DB:       a.cfg.Redis.DB,
	}

	rdStorage, err := redis.InitStorage(ctx, options, a.cfg.Redis.Channel)
	if err != nil {
		slog.Error("Failed to initialize Redis, notifier disabled", "error", err)
		return nil
	}

	slog.Info("Redis client initialized")
	return rdStorage
}

func (a *App) initPublisher(rdStorage *redis.Storage) updater.Publisher {
	var publishers []presence.Publisher

	if a.cfg.Discord.PublishEnabled() {
		publishers = append(publishers, discord.NewClient(a.cfg.Discord.APIURL, a.cfg.Discord.Token, a.cfg.Discord.Timeout))
	} else {
		slog.Warn("TIP: DISCORD_TOKEN_ID missing, running fetch and persist only")
	}

	if rdStorage != nil {
		publishers = append(publishers, rdStorage)
	}

	if len(publishers) == 0 {
		return nil
	}

	return presence.NewFanout(publishers...)
}

func (a *App) runGateway(ctx context.Context) {
	gateway := discord.NewGateway(a.cfg.Discord.GatewayURL, a.cfg.Discord.Token, a.cfg.Discord.CustomStatus)

	if err := gateway.Run(ctx); err != nil {
		slog.Error("TIP: Missing or invalid DISCORD_TOKEN_ID, chat session closed", "error", err)
	}
}
