package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/adapter/repo"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/domain"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/infra"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/pipeline"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/providers/genai"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/realtime"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/realtime/bus"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/stages"
	"github.com/SuleymanEmirGergin/MasalFabrikasi-sub000/internal/storage"
)

const jobPollInterval = 2 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: db connection failed")
	}
	defer pool.Close()

	runner := infra.NewSQLRunner(pool, logger)
	jobs := repo.NewJobRepository(runner, logger)
	assets := repo.NewAssetRepository(runner)

	storagePath := cfg.StoragePath
	if storagePath == "" {
		storagePath = "./storage"
	}
	if !filepath.IsAbs(storagePath) {
		if abs, err := filepath.Abs(storagePath); err == nil {
			storagePath = abs
		}
	}
	fileStore, err := storage.NewFileStore(storagePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure storage")
	}

	geminiAPIKey := strings.TrimSpace(cfg.GeminiAPIKey)
	httpClient := &http.Client{Timeout: 60 * time.Second}
	geminiClient, err := genai.NewClient(genai.Options{
		APIKey:     geminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		Model:      cfg.GeminiModel,
		HTTPClient: httpClient,
		Logger:     &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: failed to configure gemini client")
	}
	if geminiAPIKey == "" {
		logger.Warn().Str("model", geminiClient.Model()).Msg("worker: gemini api key missing, using synthetic generation")
	}

	executors := map[string]pipeline.Executor{
		pipeline.StageText:  stages.NewTextStage(geminiClient, logger),
		pipeline.StageImage: stages.NewImageStage(geminiClient, fileStore, logger),
		pipeline.StageAudio: stages.NewAudioStage(geminiClient, fileStore, cfg.TTSVoice, logger),
		pipeline.StageIndex: stages.NewIndexStage(assets, fileStore, logger),
	}
	plans, err := pipeline.BuildPlans(executors)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: invalid stage plans")
	}

	var publisher pipeline.Publisher = noopPublisher{}
	if cfg.RedisAddr != "" {
		redisBus, err := bus.NewRedisBus(ctx, cfg.RedisAddr, cfg.RedisChannel, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: failed to connect redis")
		}
		defer redisBus.Close()
		publisher = realtime.Fanout{redisBus}
	}

	orchestrator := pipeline.NewOrchestrator(jobs, plans, publisher, pipeline.Options{
		MaxAttempts: cfg.MaxAttempts,
		Backoff:     pipeline.Backoff{Base: cfg.RetryBaseDelay, Max: cfg.RetryMaxDelay},
	}, logger)

	logger.Info().Int("concurrency", cfg.WorkerConcurrency).Msg("worker: started")

	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runLoop(ctx, jobs, orchestrator, logger)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("worker: stopped with error")
	}
	logger.Info().Msg("worker: stopped")
}

// runLoop polls for ready jobs and executes them until the context ends.
// Claim arbitrates between loops racing on the same job id.
func runLoop(ctx context.Context, jobs domain.JobRepository, orchestrator *pipeline.Orchestrator, logger infra.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		jobID, err := jobs.NextReady(ctx)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Error().Err(err).Msg("worker: poll failed")
			}
			sleep(ctx, jobPollInterval)
			continue
		}

		if err := orchestrator.Execute(ctx, jobID); err != nil {
			logger.Error().Err(err).Str("job_id", jobID).Msg("worker: job execution failed")
			sleep(ctx, jobPollInterval)
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, domain.ProgressMessage) {}
