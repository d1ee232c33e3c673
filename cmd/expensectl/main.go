package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/go-expense-tracker/internal/api"
	"github.com/pribylovaa/go-expense-tracker/internal/cli"
	"github.com/pribylovaa/go-expense-tracker/internal/client"
	"github.com/pribylovaa/go-expense-tracker/internal/config"
	"github.com/pribylovaa/go-expense-tracker/internal/session"
	"github.com/pribylovaa/go-expense-tracker/internal/tokens"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Debug("starting expensectl", "env", cfg.Env, "api", cfg.API.BaseURL, "tokens", cfg.Tokens.Backend)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closer, err := tokens.Open(ctx, cfg.Tokens)
	if err != nil {
		log.Error("token_store_init_failed", slog.String("err", err.Error()))
		fmt.Fprintln(os.Stderr, "error: token storage unavailable")
		return cli.ExitError
	}

	defer func() {
		if cerr := closer.Close(); cerr != nil {
			log.Warn("token_store_close_failed", slog.String("err", cerr.Error()))
		}
	}()

	nav := cli.NewNavigator(os.Stderr)
	opts := []client.Option{client.WithNavigator(nav), client.WithLogger(log)}

	reg := newMetricsRegistry(cfg.Metrics)
	if reg != nil {
		opts = append(opts, client.WithRegisterer(reg))
	}

	cl, err := client.New(*cfg, store, opts...)
	if err != nil {
		log.Error("client_init_failed", slog.String("err", err.Error()))
		fmt.Fprintln(os.Stderr, "error:", err)
		return cli.ExitError
	}

	app := cli.New(session.New(cl, store, log), api.New(cl), nav, os.Stdin, os.Stdout, os.Stderr)
	code := app.Run(ctx, flag.Args())

	if err := writeMetrics(cfg.Metrics, reg); err != nil {
		log.Warn("metrics_write_failed", slog.String("path", cfg.Metrics.Textfile), slog.String("err", err.Error()))
	}

	return code
}

// setupLogger — логи в stderr, stdout остаётся за выводом команд.
func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
