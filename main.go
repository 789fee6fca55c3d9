package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"outletradar/internal/bootstrap"
	"outletradar/internal/shared/config"
	"outletradar/internal/shared/logger"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	go func() { <-quit; cancel() }()

	log := logger.NewLogger("outlet-service")
	defer log.Close()

	bootstrap.Run(ctx, cfg, log)
}
