package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/repository"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
)

// Compile-time check
var _ UsageUseCase = (*usageUC)(nil)

// UsageUseCase meters protected actions against the plan of the user's current subscription.
type UsageUseCase interface {
	CheckQuota(ctx context.Context, userID string, action model.UsageAction) (model.QuotaDecision, error)
	// Increment bumps the counter of action in the current window.
	Increment(ctx context.Context, userID string, action model.UsageAction) (*model.UsagePeriod, error)
	// TryIncrement is Increment for callers whose action already succeeded: failures are logged, not returned.
	TryIncrement(ctx context.Context, userID string, action model.UsageAction)
	// Rollover opens the next window when now is past the current period end.
	Rollover(ctx context.Context, userID string, now time.Time) (*model.UsagePeriod, bool, error)
}

type usageUC struct {
	acct  *provisioner
	subs  repository.SubscriptionRepository
	usage repository.UsagePeriodRepository
	tm    repository.TransactionManager
	log   *zerolog.Logger
}

func NewUsageUseCase(
	plans repository.SubscriptionPlanRepository,
	subs repository.SubscriptionRepository,
	usage repository.UsagePeriodRepository,
	tm repository.TransactionManager,
	freePlanName string,
	logger *zerolog.Logger,
) *usageUC {
	if freePlanName == "" {
		freePlanName = model.FreePlanName
	}
	return &usageUC{
		acct:  &provisioner{plans: plans, subs: subs, usage: usage, freePlanName: freePlanName},
		subs:  subs,
		usage: usage,
		tm:    tm,
		log:   logger,
	}
}

func (u *usageUC) CheckQuota(ctx context.Context, userID string, action model.UsageAction) (model.QuotaDecision, error) {
	defer logging.TraceDuration(u.log, "UsageUC.CheckQuota")()

	if _, err := model.ParseUsageAction(string(action)); err != nil {
		return model.QuotaDecision{}, err
	}
	now := time.Now().UTC()
	acc, err := u.acct.ensure(ctx, repository.NoTX, userID, now)
	if err != nil {
		return model.QuotaDecision{}, err
	}
	d := model.EvaluateQuota(acc.Sub, acc.Plan, acc.Period, action, now)
	if !d.Allowed {
		metrics.IncQuotaDenied(string(action), d.Code)
		logging.With(ctx, u.log).Info().Str("action", string(action)).Str("code", d.Code).Msg("quota denied")
	}
	return d, nil
}

func (u *usageUC) Increment(ctx context.Context, userID string, action model.UsageAction) (*model.UsagePeriod, error) {
	defer logging.TraceDuration(u.log, "UsageUC.Increment")()

	if _, err := model.ParseUsageAction(string(action)); err != nil {
		return nil, err
	}
	acc, err := u.acct.ensure(ctx, repository.NoTX, userID, time.Now().UTC())
	if err != nil {
		metrics.IncUsage(string(action), "error")
		return nil, err
	}
	p, err := u.usage.Increment(ctx, repository.NoTX, acc.Period.ID, action)
	if err != nil {
		metrics.IncUsage(string(action), "error")
		return nil, err
	}
	metrics.IncUsage(string(action), "ok")
	return p, nil
}

func (u *usageUC) TryIncrement(ctx context.Context, userID string, action model.UsageAction) {
	if _, err := u.Increment(ctx, userID, action); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("user_id", userID).Str("action", string(action)).
			Msg("usage increment failed after a completed action")
	}
}

// Rollover appends the usage row of the window that contains now, aligned on
// whole periods after the old end. Earlier rows are never modified. Only a
// free-tier subscription has its current period moved onto the new window;
// paid billing windows move on provider renewal events alone.
func (u *usageUC) Rollover(ctx context.Context, userID string, now time.Time) (*model.UsagePeriod, bool, error) {
	defer logging.TraceDuration(u.log, "UsageUC.Rollover")()

	var (
		out    *model.UsagePeriod
		rolled bool
	)
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := u.subs.FindLatestByUser(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNoSubscription
			}
			return err
		}
		plan, err := u.acct.plans.FindByID(ctx, tx, sub.PlanID)
		if err != nil {
			return err
		}
		if !now.After(sub.CurrentPeriodEnd) {
			out, err = u.acct.ensurePeriod(ctx, tx, sub, plan, sub.CurrentPeriodStart, sub.CurrentPeriodEnd)
			return err
		}

		start := sub.CurrentPeriodEnd
		for !now.Before(start.Add(model.DefaultPeriod)) {
			start = start.Add(model.DefaultPeriod)
		}
		end := start.Add(model.DefaultPeriod)

		out, err = u.usage.FindCurrent(ctx, tx, sub.ID, start, end)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			if out, err = u.acct.ensurePeriod(ctx, tx, sub, plan, start, end); err != nil {
				return err
			}
			rolled = true
		default:
			return err
		}

		if !sub.IsFreeTier() {
			return nil
		}
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd = start, end
		sub.UpdatedAt = now
		if err := u.subs.Update(ctx, tx, sub); err != nil {
			return err
		}
		rolled = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if rolled {
		metrics.IncRollover()
		u.log.Info().Str("user_id", userID).Time("period_start", out.PeriodStart).Msg("usage period rolled over")
	}
	return out, rolled, nil
}
