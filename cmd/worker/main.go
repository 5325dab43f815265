package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/johnpaul085/free-sora-sub000/internal/infra"
	"github.com/johnpaul085/free-sora-sub000/internal/orchestrator"
	"github.com/johnpaul085/free-sora-sub000/internal/provider"
	"github.com/johnpaul085/free-sora-sub000/internal/provider/dashscope"
	"github.com/johnpaul085/free-sora-sub000/internal/provider/kling"
	"github.com/johnpaul085/free-sora-sub000/internal/provider/openaiimg"
	"github.com/johnpaul085/free-sora-sub000/internal/provider/sora"
	"github.com/johnpaul085/free-sora-sub000/internal/registry"
	"github.com/johnpaul085/free-sora-sub000/internal/rehost"
	"github.com/johnpaul085/free-sora-sub000/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	taskStore := store.New(runner)

	storagePath := cfg.StoragePath
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := rehost.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}
	httpClient := &http.Client{}
	rehoster := rehost.New(fileStore, httpClient, cfg.StorageBaseURL, logger)

	if cfg.ProviderSeedFile != "" {
		seedProviders(ctx, cfg.ProviderSeedFile, taskStore, logger)
	}

	adapters := provider.NewRegistry(
		openaiimg.New(httpClient),
		dashscope.New(httpClient),
		kling.New(httpClient),
		sora.New(httpClient),
	)

	loop := orchestrator.New(taskStore, adapters, rehoster, logger, orchestrator.Options{
		Interval:      cfg.LoopInterval,
		DispatchBatch: cfg.DispatchBatch,
		PollBatch:     cfg.PollBatch,
	})

	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// seedProviders bootstraps the provider table from a YAML file on a fresh
// install. Existing rows always win; the seed never overwrites.
func seedProviders(ctx context.Context, path string, taskStore *store.Store, logger infra.Logger) {
	configs, err := registry.LoadSeedFile(path)
	if err != nil {
		logger.Warn().Err(err).Str("path", path).Msg("worker: provider seed file unusable")
		return
	}
	inserted, err := taskStore.SeedProviderConfigs(ctx, configs)
	if err != nil {
		logger.Warn().Err(err).Msg("worker: provider seed failed")
		return
	}
	if inserted > 0 {
		logger.Info().Int("providers", inserted).Msg("worker: seeded provider configurations")
	}
}
