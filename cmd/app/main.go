package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/config"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/adapters/billing"
	"ai-image-studio/internal/infra/adapters/imagegen"
	"ai-image-studio/internal/infra/adapters/notify"
	"ai-image-studio/internal/infra/adapters/storage"
	"ai-image-studio/internal/infra/adapters/training"
	"ai-image-studio/internal/infra/api"
	pg "ai-image-studio/internal/infra/db/postgres"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
	red "ai-image-studio/internal/infra/redis"
	"ai-image-studio/internal/infra/retry"
	"ai-image-studio/internal/infra/security"
	"ai-image-studio/internal/infra/worker"
	"ai-image-studio/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	tm := pg.NewTxManager(pool)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	limiter := red.NewRateLimiter(redisClient, cfg.Usage.RateLimit, cfg.Usage.RateWindow)

	// ---- Repositories ----
	userRepo := pg.NewUserRepoCacheDecorator(pg.NewUserRepo(pool), redisClient, 10*time.Minute, logger)
	planRepo := pg.NewPlanRepoCacheDecorator(pg.NewPlanRepo(pool), redisClient, time.Hour, logger)
	subRepo := pg.NewSubscriptionRepo(pool)
	usageRepo := pg.NewUsageRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	jobRepo := pg.NewTrainingJobRepo(pool)
	eventRepo := pg.NewWebhookEventRepo(pool)

	// ---- Outbound adapters ----
	policy := retry.DefaultPolicy()
	policy.Timeout, policy.MaxRetries = cfg.Outbound.Timeout, cfg.Outbound.MaxRetries

	blobs, blobHandler := newBlobStore(ctx, cfg, logger)
	billingProvider := newBillingProvider(cfg, policy, logger)

	var trainingProvider adapter.TrainingProvider = training.Unavailable{}
	var trainedGen adapter.ImageGenerator
	if cfg.Training.APIToken != "" {
		rc, err := training.NewReplicateClient(cfg.Training.BaseURL, cfg.Training.APIToken,
			cfg.Training.TrainerVersion, cfg.Training.Destination, cfg.ImageGen.ReplicateModel, policy)
		if err != nil {
			logger.Fatal().Err(err).Msg("replicate client")
		}
		trainingProvider, trainedGen = rc, rc
	} else {
		logger.Warn().Msg("training.api_token not set; model training is disabled")
	}
	generator := newImageGenerator(ctx, cfg, policy, trainedGen, logger)

	// ---- Notifications ----
	notifyPool := worker.NewPool(cfg.Notify.Workers, logger)
	notifyPool.Start(ctx)
	defer notifyPool.Stop()
	notifier, alerter := newMessengers(cfg, logger)
	messenger := notify.NewAsync(notifyPool, notifier, alerter, logger)

	// ---- Use cases ----
	userUC := usecase.NewUserUseCase(userRepo, logger)
	resolver := usecase.NewUserResolver(userRepo, subRepo)
	usageUC := usecase.NewUsageUseCase(planRepo, subRepo, usageRepo, tm, cfg.Usage.FreePlanName, logger)
	ledgerUC := usecase.NewLedgerUseCase(planRepo, subRepo, usageRepo, paymentRepo, resolver, billingProvider, tm, cfg.Usage.FreePlanName, logger)
	trainingUC := usecase.NewTrainingUseCase(jobRepo, userRepo, usageUC, trainingProvider, blobs, messenger, messenger,
		cfg.Server.PublicBaseURL, policy, logger)
	generationUC := usecase.NewGenerationUseCase(usageUC, jobRepo, generator, storage.NewRehoster(blobs, policy),
		imagegen.NewTokenCounter(), limiter, usecase.GenerationLimits{
			MaxPromptTokens:  cfg.Usage.MaxPromptTokens,
			ImagesPerRequest: cfg.Usage.ImagesPerRequest,
		}, logger)
	webhookUC := usecase.NewWebhookUseCase(usecase.NewEventStore(eventRepo), ledgerUC, trainingUC, messenger, logger)

	// ---- HTTP ----
	paymentVerifier, err := security.NewVerifier(cfg.Webhook.PaymentSecret, security.WithTolerance(cfg.Webhook.Tolerance))
	if err != nil {
		logger.Fatal().Err(err).Msg("payment webhook secret")
	}
	trainingVerifier, err := security.NewVerifier(cfg.Webhook.TrainingSecret, security.WithTolerance(cfg.Webhook.Tolerance))
	if err != nil {
		logger.Fatal().Err(err).Msg("training webhook secret")
	}
	auth, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("authenticator")
	}

	srv := api.NewServer(api.Deps{
		Webhooks:          webhookUC,
		Ledger:            ledgerUC,
		Usage:             usageUC,
		Generation:        generationUC,
		Training:          trainingUC,
		Users:             userUC,
		PaymentVerifier:   paymentVerifier,
		TrainingVerifier:  trainingVerifier,
		Auth:              auth,
		AdminKey:          cfg.Auth.AdminAPIKey,
		MaxUploadBytes:    cfg.Server.MaxUploadBytes,
		RequestTimeout:    cfg.Server.RequestTimeout,
		CheckoutReturnURL: cfg.Billing.ReturnURL,
		Blobs:             blobHandler,
		Health: func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			return redisClient.Ping(ctx)
		},
		PoolStats: func() (int32, int32, int32) {
			s := pool.Stat()
			return s.TotalConns(), s.IdleConns(), s.AcquiredConns()
		},
		Logger: logger,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// newBlobStore returns the configured store and, for the in-memory store, the
// handler that serves its objects under /blobs.
func newBlobStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (adapter.BlobStore, http.Handler) {
	if cfg.Storage.Bucket == "" {
		logger.Warn().Msg("storage.bucket not set; using in-memory blob store")
		mem := storage.NewMemoryStore(strings.TrimRight(cfg.Server.PublicBaseURL, "/") + "/blobs")
		return mem, mem
	}
	s3, err := storage.NewS3Store(ctx, storage.S3Options{
		Endpoint:      cfg.Storage.Endpoint,
		Region:        cfg.Storage.Region,
		Bucket:        cfg.Storage.Bucket,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("s3 store")
	}
	return s3, nil
}

func newBillingProvider(cfg *config.Config, policy retry.Policy, logger *zerolog.Logger) adapter.BillingProvider {
	if cfg.Billing.APIKey == "" {
		logger.Warn().Msg("billing.api_key not set; checkout and cancellation are disabled")
		return billing.NewNoopBilling(logger)
	}
	c, err := billing.NewDodoClient(cfg.Billing.BaseURL, cfg.Billing.APIKey, policy)
	if err != nil {
		logger.Fatal().Err(err).Msg("billing client")
	}
	return c
}

func newImageGenerator(ctx context.Context, cfg *config.Config, policy retry.Policy, trained adapter.ImageGenerator, logger *zerolog.Logger) adapter.ImageGenerator {
	byProvider := map[string]adapter.ImageGenerator{}
	if cfg.ImageGen.OpenAIKey != "" {
		g, err := imagegen.NewOpenAIGenerator(cfg.ImageGen.OpenAIKey, cfg.ImageGen.OpenAIModel, policy)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai generator")
		}
		byProvider["openai"] = g
	}
	if cfg.ImageGen.GeminiKey != "" {
		g, err := imagegen.NewGeminiGenerator(ctx, cfg.ImageGen.GeminiKey, cfg.ImageGen.GeminiURL, cfg.ImageGen.GeminiModel, policy)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini generator")
		}
		byProvider["gemini"] = g
	}
	if trained != nil {
		byProvider["replicate"] = trained
	}
	if len(byProvider) == 0 {
		logger.Warn().Msg("no image provider key set; using placeholder generator")
		byProvider[cfg.ImageGen.Provider] = imagegen.NewNoop(logger)
	}
	router := imagegen.NewRouter(cfg.ImageGen.Provider, byProvider, trained)
	return imagegen.NewLimited(router, cfg.ImageGen.MaxConcurrent)
}

func newMessengers(cfg *config.Config, logger *zerolog.Logger) (adapter.Notifier, adapter.OpsAlerter) {
	var notifier adapter.Notifier
	var alerter adapter.OpsAlerter
	if e := cfg.Notify.Email; e.Host != "" {
		n, err := notify.NewEmailNotifier(e.Host, e.Port, e.Username, e.Password, e.From)
		if err != nil {
			logger.Fatal().Err(err).Msg("email notifier")
		}
		notifier = n
	}
	if tg := cfg.Notify.Telegram; tg.Token != "" {
		a, err := notify.NewTelegramAlerter(tg.Token, tg.AdminChatIDs)
		if err != nil {
			logger.Error().Err(err).Msg("telegram alerter disabled")
		} else {
			alerter = a
		}
	}
	return notifier, alerter
}
