package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/model"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/domain/ports/repository"
	"ai-image-studio/internal/infra/logging"
	"ai-image-studio/internal/infra/metrics"
)

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// Entitlement is what a user may do right now.
type Entitlement struct {
	Subscription         *model.Subscription
	Plan                 *model.SubscriptionPlan
	Usage                *model.UsagePeriod
	ImagesRemaining      *int // nil is unlimited
	ModelsRemaining      *int
	IsActive             bool
	IsExpired            bool
	TrialDaysRemaining   int
	BillingDaysRemaining int
	CanGenerateImage     bool
	CanTrainModel        bool
}

// CheckoutInput selects the plan to buy by its provider product id.
type CheckoutInput struct {
	ProductID string
	ReturnURL string
}

// CheckoutSession is a pending provider subscription and the page to pay it on.
type CheckoutSession struct {
	Plan     *model.SubscriptionPlan
	Checkout *adapter.Checkout
}

// LedgerUseCase turns payment provider events into subscription and payment state.
type LedgerUseCase interface {
	ApplySubscriptionEvent(ctx context.Context, eventType string, data SubscriptionEventData) (*model.Subscription, error)
	ApplyPaymentEvent(ctx context.Context, eventType string, data PaymentEventData) (*model.PaymentTransaction, error)
	ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Checkout(ctx context.Context, userID string, in CheckoutInput) (*CheckoutSession, error)
	Cancel(ctx context.Context, userID string, atPeriodEnd bool) (*model.Subscription, error)
	GetEntitlement(ctx context.Context, userID string) (*Entitlement, error)
	BillingHistory(ctx context.Context, userID string, limit int) ([]*model.PaymentTransaction, error)
}

type ledgerUC struct {
	acct     *provisioner
	resolver *UserResolver
	subs     repository.SubscriptionRepository
	payments repository.PaymentRepository
	billing  adapter.BillingProvider
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewLedgerUseCase(
	plans repository.SubscriptionPlanRepository,
	subs repository.SubscriptionRepository,
	usage repository.UsagePeriodRepository,
	payments repository.PaymentRepository,
	resolver *UserResolver,
	billing adapter.BillingProvider,
	tm repository.TransactionManager,
	freePlanName string,
	logger *zerolog.Logger,
) *ledgerUC {
	if freePlanName == "" {
		freePlanName = model.FreePlanName
	}
	return &ledgerUC{
		acct:     &provisioner{plans: plans, subs: subs, usage: usage, freePlanName: freePlanName},
		resolver: resolver,
		subs:     subs,
		payments: payments,
		billing:  billing,
		tm:       tm,
		log:      logger,
	}
}

var reactivatingEvents = map[string]bool{"activated": true, "renewed": true, "active": true}

// subscriptionStatusFor prefers a recognized provider status and otherwise derives one from the event type.
func subscriptionStatusFor(eventType, dataStatus string) (model.SubscriptionStatus, bool) {
	kind := strings.TrimPrefix(strings.ToLower(eventType), "subscription.")
	reactivates := reactivatingEvents[kind]
	if s, ok := model.ParseSubscriptionStatus(dataStatus); ok {
		return s, reactivates
	}
	switch kind {
	case "cancelled", "canceled":
		return model.SubscriptionStatusCancelled, reactivates
	case "on_hold", "failed":
		return model.SubscriptionStatusPastDue, reactivates
	case "expired":
		return model.SubscriptionStatusExpired, reactivates
	}
	return model.SubscriptionStatusActive, reactivates
}

func (l *ledgerUC) ApplySubscriptionEvent(ctx context.Context, eventType string, data SubscriptionEventData) (*model.Subscription, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.ApplySubscriptionEvent")()

	now := time.Now().UTC()
	status, reactivates := subscriptionStatusFor(eventType, data.Status)
	start, end := data.Period(now, model.DefaultPeriod)
	email, customerID := data.Identity()

	var (
		out     *model.Subscription
		created bool
	)
	err := l.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		user, err := l.resolver.Resolve(ctx, tx, email, customerID)
		if err != nil {
			return err
		}
		plan, err := l.acct.plans.FindByExternalID(ctx, tx, data.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("product %q: %w", data.ProductID, domain.ErrPlanNotFound)
			}
			return err
		}

		sub, err := l.subs.FindByExternalID(ctx, tx, data.SubscriptionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if sub == nil {
			fresh := newPaidSubscription(user.ID, plan.ID, status, start, end, data.SubscriptionID, customerID, data.CancelAtPeriodEnd, now)
			created, err = l.subs.InsertIfAbsent(ctx, tx, fresh)
			if err != nil {
				return err
			}
			if created {
				sub = fresh
				if err := l.supersedeTrial(ctx, tx, user.ID, now); err != nil {
					return err
				}
			} else {
				// a concurrent delivery inserted it first; take the update path once
				if sub, err = l.subs.FindByExternalID(ctx, tx, data.SubscriptionID); err != nil {
					return err
				}
			}
		}
		if !created {
			sub.ApplyTransition(model.SubscriptionTransition{
				Status:             status,
				PeriodStart:        start,
				PeriodEnd:          end,
				CancelAtPeriodEnd:  data.CancelAtPeriodEnd,
				ExternalCustomerID: customerID,
				PlanID:             plan.ID,
				Reactivates:        reactivates,
				At:                 now,
			})
			if err := l.subs.Update(ctx, tx, sub); err != nil {
				return err
			}
		}

		if _, err := l.acct.ensurePeriod(ctx, tx, sub, plan, sub.CurrentPeriodStart, sub.CurrentPeriodEnd); err != nil {
			return err
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.IncSubscriptionEvent(string(out.Status), created)
	logging.With(ctx, l.log).Info().Str("subscription_id", out.ID).Str("status", string(out.Status)).
		Bool("created", created).Msg("subscription event applied")
	return out, nil
}

func newPaidSubscription(userID, planID string, status model.SubscriptionStatus, start, end time.Time, extSubID, customerID string, cancelAtEnd bool, now time.Time) *model.Subscription {
	s := &model.Subscription{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PlanID:             planID,
		Status:             status,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		CancelAtPeriodEnd:  cancelAtEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	ext := extSubID
	s.ExternalSubscriptionID = &ext
	if customerID != "" {
		c := customerID
		s.ExternalCustomerID = &c
	}
	if status == model.SubscriptionStatusCancelled {
		s.CancelledAt = &now
	}
	return s
}

// supersedeTrial expires the user's provisioned trial once a paid subscription exists.
func (l *ledgerUC) supersedeTrial(ctx context.Context, tx repository.Tx, userID string, now time.Time) error {
	trial, err := l.subs.FindTrialByUser(ctx, tx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if !trial.IsActive() {
		return nil
	}
	trial.Status = model.SubscriptionStatusExpired
	trial.UpdatedAt = now
	return l.subs.Update(ctx, tx, trial)
}

var paymentEventStatus = map[string]model.PaymentStatus{
	"payment.succeeded": model.PaymentStatusSucceeded,
	"payment.failed":    model.PaymentStatusFailed,
	"payment.refunded":  model.PaymentStatusRefunded,
}

func (l *ledgerUC) ApplyPaymentEvent(ctx context.Context, eventType string, data PaymentEventData) (*model.PaymentTransaction, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.ApplyPaymentEvent")()

	now := time.Now().UTC()
	status, ok := paymentEventStatus[strings.ToLower(eventType)]
	if !ok {
		if status, ok = model.ParsePaymentStatus(data.Status); !ok {
			status = model.PaymentStatusPending
		}
	}
	email, customerID := data.Identity()

	var (
		stored *model.PaymentTransaction
		prior  *model.PaymentTransaction
	)
	err := l.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		user, err := l.resolver.Resolve(ctx, tx, email, customerID)
		if err != nil {
			return err
		}
		p := &model.PaymentTransaction{
			ID:                uuid.NewString(),
			UserID:            user.ID,
			ExternalPaymentID: data.PaymentID,
			Amount:            model.MinorToMajor(data.Amount),
			Currency:          strings.ToUpper(data.Currency),
			Status:            status,
			PaymentMethod:     data.PaymentMethod,
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if p.Currency == "" {
			p.Currency = "USD"
		}
		if data.SubscriptionID != "" {
			sub, err := l.subs.FindByExternalID(ctx, tx, data.SubscriptionID)
			switch {
			case err == nil:
				p.SubscriptionID = &sub.ID
			case !errors.Is(err, domain.ErrNotFound):
				return err
			}
		}
		switch status {
		case model.PaymentStatusRefunded:
			p.RefundedAt = &now
		case model.PaymentStatusFailed:
			if reason := strings.TrimSpace(data.ErrorMessage); reason != "" {
				p.FailureReason = &reason
			}
		}

		prior, err = l.payments.FindByExternalID(ctx, tx, data.PaymentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		stored, err = l.payments.Upsert(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.IncPayment(string(stored.Status))
	if stored.Status == model.PaymentStatusSucceeded && (prior == nil || prior.Status != model.PaymentStatusSucceeded) {
		metrics.AddPaymentRevenue(stored.Currency, stored.Amount)
	}
	logging.With(ctx, l.log).Info().Str("payment_id", stored.ExternalPaymentID).Str("status", string(stored.Status)).
		Msg("payment event applied")
	return stored, nil
}

// ListPlans returns the active catalog, cheapest first.
func (l *ledgerUC) ListPlans(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	plans, err := l.acct.plans.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(plans, func(i, j int) bool {
		if c := plans[i].Price.Cmp(plans[j].Price); c != 0 {
			return c < 0
		}
		return plans[i].Name < plans[j].Name
	})
	return plans, nil
}

// Checkout opens a provider subscription for a paid plan and returns its
// payment link. Nothing is stored here; the subscription row is created by
// the provider's subscription webhook, matched back through the user's email.
func (l *ledgerUC) Checkout(ctx context.Context, userID string, in CheckoutInput) (*CheckoutSession, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Checkout")()
	log := logging.With(ctx, l.log)

	productID := strings.TrimSpace(in.ProductID)
	if productID == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidArgument)
	}
	plan, err := l.acct.plans.FindByExternalID(ctx, repository.NoTX, productID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("product %q: %w", productID, domain.ErrPlanNotFound)
		}
		return nil, err
	}
	if !plan.IsActive || !plan.Price.IsPositive() {
		return nil, fmt.Errorf("%w: plan %q cannot be purchased", domain.ErrInvalidArgument, plan.Name)
	}
	user, err := l.resolver.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	current, err := l.subs.FindLatestByUser(ctx, repository.NoTX, userID)
	switch {
	case err == nil:
		if !current.IsFreeTier() && current.PlanID == plan.ID && current.IsActive() && !current.CancelAtPeriodEnd {
			return nil, domain.ErrAlreadySubscribed
		}
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}

	co, err := l.billing.CreateCheckout(ctx, adapter.CheckoutRequest{
		ProductID: productID,
		Email:     user.Email,
		Name:      user.DisplayName,
		ReturnURL: in.ReturnURL,
		Metadata: map[string]string{
			"user_id":   user.ID,
			"plan_name": plan.Name,
		},
	})
	if err != nil {
		log.Error().Err(err).Str("product_id", productID).Msg("provider checkout failed")
		return nil, err
	}
	log.Info().Str("plan", plan.Name).Str("external_subscription_id", co.ExternalSubscriptionID).Msg("checkout created")
	return &CheckoutSession{Plan: plan, Checkout: co}, nil
}

func (l *ledgerUC) Cancel(ctx context.Context, userID string, atPeriodEnd bool) (*model.Subscription, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.Cancel")()

	sub, err := l.subs.FindLatestByUser(ctx, repository.NoTX, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNoSubscription
		}
		return nil, err
	}
	if sub.IsFreeTier() {
		return nil, domain.ErrCannotCancelFree
	}
	if err := l.billing.CancelSubscription(ctx, *sub.ExternalSubscriptionID, atPeriodEnd); err != nil {
		logging.With(ctx, l.log).Error().Err(err).Str("subscription_id", sub.ID).Msg("provider cancel failed")
		return nil, err
	}

	now := time.Now().UTC()
	if atPeriodEnd {
		sub.CancelAtPeriodEnd = true
	} else {
		sub.Status = model.SubscriptionStatusCancelled
		sub.CancelledAt = &now
	}
	sub.UpdatedAt = now
	if err := l.subs.Update(ctx, repository.NoTX, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

func (l *ledgerUC) GetEntitlement(ctx context.Context, userID string) (*Entitlement, error) {
	defer logging.TraceDuration(l.log, "LedgerUC.GetEntitlement")()

	now := time.Now().UTC()
	acc, err := l.acct.ensure(ctx, repository.NoTX, userID, now)
	if err != nil {
		return nil, err
	}
	img := model.EvaluateQuota(acc.Sub, acc.Plan, acc.Period, model.ActionGenerateImage, now)
	train := model.EvaluateQuota(acc.Sub, acc.Plan, acc.Period, model.ActionTrainModel, now)
	return &Entitlement{
		Subscription:         acc.Sub,
		Plan:                 acc.Plan,
		Usage:                acc.Period,
		ImagesRemaining:      img.Remaining,
		ModelsRemaining:      train.Remaining,
		IsActive:             acc.Sub.IsActive(),
		IsExpired:            acc.Sub.IsExpired(now),
		TrialDaysRemaining:   acc.Sub.TrialDaysRemaining(now),
		BillingDaysRemaining: acc.Sub.BillingDaysRemaining(now),
		CanGenerateImage:     img.Allowed,
		CanTrainModel:        train.Allowed,
	}, nil
}

func (l *ledgerUC) BillingHistory(ctx context.Context, userID string, limit int) ([]*model.PaymentTransaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return l.payments.ListByUser(ctx, repository.NoTX, userID, limit)
}
