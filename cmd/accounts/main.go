package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/tendant/chi-demo/app"

	"github.com/tendant/simple-account/pkg/account/api"
	"github.com/tendant/simple-account/pkg/bootstrap"
	"github.com/tendant/simple-account/pkg/config"
)

func main() {
	// Create a logger with source enabled
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true, // Enables line number & file path
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	service, closeStore, err := bootstrap.NewAccountService(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open account store", "persistence", cfg.AccountConfig.Persistence, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	result, err := bootstrap.BootstrapFromConfig(ctx, cfg, service)
	if err != nil {
		slog.Error("Failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}
	bootstrap.PrintBootstrapResult(os.Stdout, result)
	bootstrap.LogBootstrapSummary(result)

	server := app.DefaultApp()
	app.RoutesHealthz(server.R)

	handle := api.NewHandle(service)
	server.R.Mount("/api/v1", handle.Routes())

	slog.Info("Account service ready",
		"persistence", cfg.AccountConfig.Persistence,
		"host", cfg.AppConfig.Host,
		"port", cfg.AppConfig.Port)

	server.Run()
}
