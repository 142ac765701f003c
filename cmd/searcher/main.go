package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/spacesedan/platepick/config"
	"github.com/spacesedan/platepick/internal/app"
	"github.com/spacesedan/platepick/internal/history"
	"github.com/spacesedan/platepick/internal/logging"
	"github.com/spacesedan/platepick/internal/models"
	"github.com/spacesedan/platepick/internal/pipeline"
)

func main() {
	food := flag.String("food", "", "food to search for, e.g. pizza")
	location := flag.String("location", "", "where to search, e.g. Lagos")
	limit := flag.Int("limit", 0, "maximum restaurants to consider (0 uses SEARCH_LIMIT)")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall search timeout")
	showHistory := flag.Bool("history", false, "print recorded top picks instead of searching")
	flag.Parse()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel, cfg.LogFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("[Searcher] Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer a.Close()

	if *showHistory {
		records, err := a.Recorder.List(ctx, 20)
		if err != nil {
			slog.Error("[Searcher] Failed to list history", slog.String("error", err.Error()))
			os.Exit(1)
		}
		printJSON(records)
		return
	}

	req := models.SearchRequest{FoodQuery: *food, Location: *location, Limit: *limit}
	if err := pipeline.ValidateRequest(req); err != nil {
		fmt.Fprintln(os.Stderr, "usage: searcher -food <query> -location <place> [-limit n]")
		os.Exit(2)
	}

	view, err := a.Orchestrator.RunSearch(ctx, req)
	var persistErr *history.PersistError
	if err != nil && !errors.As(err, &persistErr) {
		slog.Error("[Searcher] Search did not finish", slog.String("error", err.Error()))
		os.Exit(1)
	}
	printJSON(view)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("[Searcher] Failed to encode output", slog.String("error", err.Error()))
	}
}
