package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	"ai-image-studio/internal/infra/metrics"
)

// account is a user's current subscription, its plan and the usage row of the
// current billing window.
type account struct {
	Sub    *model.Subscription
	Plan   *model.SubscriptionPlan
	Period *model.UsagePeriod
}

// provisioner loads an account and creates whatever is missing. Every create
// is a conflict-free insert followed by a read, so concurrent callers converge.
type provisioner struct {
	plans        repository.SubscriptionPlanRepository
	subs         repository.SubscriptionRepository
	usage        repository.UsagePeriodRepository
	freePlanName string
}

func (p *provisioner) ensure(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*account, error) {
	sub, err := p.subs.FindLatestByUser(ctx, tx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		sub, err = p.provisionTrial(ctx, tx, userID, now)
	}
	if err != nil {
		return nil, err
	}
	plan, err := p.plans.FindByID(ctx, tx, sub.PlanID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("plan %s of subscription %s: %w", sub.PlanID, sub.ID, domain.ErrPlanNotFound)
		}
		return nil, err
	}
	period, err := p.ensurePeriod(ctx, tx, sub, plan, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
	if err != nil {
		return nil, err
	}
	return &account{Sub: sub, Plan: plan, Period: period}, nil
}

func (p *provisioner) provisionTrial(ctx context.Context, tx repository.Tx, userID string, now time.Time) (*model.Subscription, error) {
	plan, err := p.plans.FindByName(ctx, tx, p.freePlanName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("free plan %q: %w", p.freePlanName, domain.ErrPlanNotFound)
		}
		return nil, err
	}
	trial, err := model.NewTrialSubscription(uuid.NewString(), userID, plan, now)
	if err != nil {
		return nil, err
	}
	created, err := p.subs.InsertIfAbsent(ctx, tx, trial)
	if err != nil {
		return nil, err
	}
	if !created {
		// lost the race to a concurrent first use
		return p.subs.FindLatestByUser(ctx, tx, userID)
	}
	metrics.IncTrialProvisioned()
	return trial, nil
}

// ensurePeriod returns the usage row for [start, end), creating it with the plan's limits.
func (p *provisioner) ensurePeriod(ctx context.Context, tx repository.Tx, sub *model.Subscription, plan *model.SubscriptionPlan, start, end time.Time) (*model.UsagePeriod, error) {
	period, err := p.usage.FindCurrent(ctx, tx, sub.ID, start, end)
	if err == nil {
		return period, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	fresh, err := model.NewUsagePeriod(uuid.NewString(), sub, plan, start, end)
	if err != nil {
		return nil, err
	}
	return p.usage.InsertIfAbsent(ctx, tx, fresh)
}
