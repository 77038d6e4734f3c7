package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/langowen/ratepresence/deploy/config"
	"github.com/langowen/ratepresence/internal/rate_updater/app"
)

func main() {
	cfg := config.NewConfig()

	ctx, cancel := context.WithCancel(context.Background())

	application := app.NewApp(cfg)
	appDone := application.Start(ctx)

	done := make(chan os.Signal, 1)

	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	slog.Info("Gracefully shutting down")

	cancel()

	<-appDone
	slog.Info("application stopped")
}
