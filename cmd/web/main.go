package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gridpulse/internal/app"
	"gridpulse/internal/infrastructure"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		return 1
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
