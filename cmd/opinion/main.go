package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/HamzaaAkmal/Get-Opinion/internal/collector"
	"github.com/HamzaaAkmal/Get-Opinion/internal/config"
	"github.com/HamzaaAkmal/Get-Opinion/internal/dashboard"
	"github.com/HamzaaAkmal/Get-Opinion/internal/domain"
	"github.com/HamzaaAkmal/Get-Opinion/internal/ingest"
	"github.com/HamzaaAkmal/Get-Opinion/internal/keypool"
	"github.com/HamzaaAkmal/Get-Opinion/internal/search"
	"github.com/HamzaaAkmal/Get-Opinion/internal/storage"
	"github.com/HamzaaAkmal/Get-Opinion/internal/variants"
)

func main() {
	// 1. Setup
	godotenv.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	query := flag.String("q", "", "search query (required)")
	numVariants := flag.Int("variants", cfg.NumVariants, "number of query variants")
	target := flag.Int("target", cfg.TargetCount, "target unique comment count")
	timeout := flag.Duration("timeout", cfg.OverallTimeout, "overall run timeout")
	serve := flag.Bool("serve", false, "serve the dashboard after the run")
	flag.Parse()

	if *query == "" {
		logger.Error("missing required -q flag")
		flag.Usage()
		os.Exit(1)
	}

	// 2. Key pool (metered source only)
	var keys *keypool.Pool
	if cfg.YouTubeEnabled {
		keys, err = keypool.New(cfg.YouTubeAPIKeys,
			keypool.WithCooldown(cfg.KeyCooldown),
			keypool.WithQuotaCycle(cfg.QuotaCycle),
		)
		if err != nil {
			logger.Error("failed to build key pool", "err", err)
			os.Exit(1)
		}
		logger.Info("key pool ready", "keys", keys.Size())
	}

	// 3. Sources (using factory)
	sources, err := collector.NewCollectors(cfg, keys)
	if err != nil {
		logger.Error("failed to initialize collectors", "err", err)
		os.Exit(1)
	}
	logger.Info("collectors initialized", "sources", len(sources), "reddit_mode", cfg.RedditMode)

	// 4. Variant generator: AI when a key is configured, static otherwise
	var gen variants.Generator
	if cfg.AnthropicAPIKey != "" {
		gen = variants.NewLLMGenerator(cfg.AnthropicAPIKey)
	} else {
		var patterns []string
		if cfg.VariantPatterns != "" {
			patterns, err = ingest.LoadVariantPatterns(cfg.VariantPatterns)
			if err != nil {
				logger.Warn("could not load variant patterns, using built-ins",
					"path", cfg.VariantPatterns, "err", err)
			}
		}
		gen = variants.NewStaticGenerator(patterns)
	}

	// 5. Graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("shutdown signal received")
		cancel()
	}()

	// 6. Run the search
	orch := search.New(gen, sources, search.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		PerFetchLimit:  cfg.PerFetchLimit,
		DrainGrace:     cfg.DrainGrace,
	}, logger)

	result, err := orch.Execute(ctx, search.Params{
		RawQuery:       *query,
		NumVariants:    *numVariants,
		TargetCount:    *target,
		OverallTimeout: *timeout,
	})
	if err != nil {
		logger.Error("invalid search parameters", "err", err)
		os.Exit(1)
	}

	if keys != nil {
		calls, cooling := keys.Stats()
		logger.Info("key pool usage", "calls", calls, "cooling", cooling)
	}

	// 7. Persist artifacts
	resultQueue := make(chan domain.Comment, 100)
	var writerWg sync.WaitGroup
	writer := &storage.WriterService{FilePath: filepath.Join(cfg.DataDirectory, "comments.json")}
	writerWg.Add(1)
	go writer.Start(&writerWg, resultQueue)
	for _, c := range result.Accepted {
		resultQueue <- c
	}
	close(resultQueue)
	writerWg.Wait()

	runPath, err := storage.SaveRunResult(cfg.DataDirectory, result)
	if err != nil {
		logger.Error("failed to save run summary", "err", err)
	} else {
		logger.Info("run saved", "path", runPath,
			"accepted", len(result.Accepted), "elapsed", result.Elapsed.Round(time.Millisecond))
	}

	// 8. Dashboard
	if *serve {
		latest := filepath.Join(cfg.DataDirectory, "latest_run.json")
		logger.Info("starting dashboard", "port", cfg.DashboardPort)
		if err := dashboard.StartServer(latest, cfg.DashboardPort); err != nil {
			logger.Error("dashboard failed", "err", err)
			os.Exit(1)
		}
	}
}
