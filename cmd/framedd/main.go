package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"framed/internal/config"
	"framed/internal/daemon"
	"framed/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		d.Stop()
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("framedd shutting down")
	d.Stop()
}
