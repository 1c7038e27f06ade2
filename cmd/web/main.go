package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"issuepulse/internal/app"
)

func main() {
	application, err := app.NewApplication()
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		application.Logger.Error("Application error", slog.String("error", err.Error()))
		stop()
		os.Exit(1)
	}
}
