package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ai-image-studio/internal/config"
	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	pg "ai-image-studio/internal/infra/db/postgres"
	"ai-image-studio/internal/infra/logging"
)

func intp(n int) *int { return &n }

func strp(s string) *string { return &s }

// catalog mirrors the products configured at the payment provider.
var catalog = []struct {
	name        string
	price       string
	images      *int
	models      *int
	externalID  *string
	description string
}{
	{model.FreePlanName, "0", intp(10), intp(1), nil, "free trial tier"},
	{"pro", "20", intp(100), intp(5), strp("pdt_TjB5s0f7ug3sV1cG41uaX"), "creators"},
	{"enterprise", "50", nil, nil, strp("pdt_CMqQUDwjosU9BnHcNPUdO"), "unlimited"},
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	plans := pg.NewPlanRepo(pool)

	for _, c := range catalog {
		existing, err := plans.FindByName(ctx, repository.NoTX, c.name)
		if err == nil {
			logger.Info().Str("plan", existing.Name).Str("id", existing.ID).Msg("plan already present")
			continue
		}
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrPlanNotFound) {
			logger.Fatal().Err(err).Str("plan", c.name).Msg("lookup plan")
		}

		p, err := model.NewSubscriptionPlan(uuid.NewString(), c.name, decimal.RequireFromString(c.price), "USD", c.images, c.models, c.externalID)
		if err != nil {
			logger.Fatal().Err(err).Str("plan", c.name).Msg("build plan")
		}
		if err := plans.Save(ctx, repository.NoTX, p); err != nil {
			logger.Fatal().Err(err).Str("plan", c.name).Msg("save plan")
		}
		logger.Info().Str("plan", p.Name).Str("id", p.ID).Str("price", p.Price.StringFixed(2)).
			Str("audience", c.description).Msg("plan seeded")
	}
}
