package model

import (
	"fmt"
	"time"

	"ai-image-studio/internal/domain"
)

type UsageAction string

const (
	ActionGenerateImage UsageAction = "generate_image"
	ActionTrainModel    UsageAction = "train_model"
)

func ParseUsageAction(s string) (UsageAction, error) {
	switch UsageAction(s) {
	case ActionGenerateImage, ActionTrainModel:
		return UsageAction(s), nil
	}
	return "", fmt.Errorf("%w: unknown usage action %q", domain.ErrInvalidArgument, s)
}

// UsagePeriod holds the counters of one subscription for one billing window.
// Rows are append-only history; a new window gets a new row.
type UsagePeriod struct {
	ID              string // UUID
	SubscriptionID  string
	UserID          string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	ImagesGenerated int
	ModelsTrained   int
	ImageLimit      *int
	ModelLimit      *int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewUsagePeriod seeds an empty window with the plan's limits.
func NewUsagePeriod(id string, sub *Subscription, plan *SubscriptionPlan, start, end time.Time) (*UsagePeriod, error) {
	if id == "" || sub == nil || plan == nil || !end.After(start) {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	return &UsagePeriod{
		ID:             id,
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PeriodStart:    start,
		PeriodEnd:      end,
		ImageLimit:     plan.ImageLimit,
		ModelLimit:     plan.ModelLimit,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (u *UsagePeriod) Used(action UsageAction) int {
	switch action {
	case ActionGenerateImage:
		return u.ImagesGenerated
	case ActionTrainModel:
		return u.ModelsTrained
	}
	return 0
}

// Remaining returns nil when the limit is unlimited.
func (u *UsagePeriod) Remaining(action UsageAction, limit *int) *int {
	if limit == nil {
		return nil
	}
	r := *limit - u.Used(action)
	if r < 0 {
		r = 0
	}
	return &r
}

// Denial reasons reported to callers.
const (
	ReasonNotActive       = "Subscription is not active"
	ReasonExpired         = "Subscription has expired"
	ReasonImageLimit      = "Image generation limit reached"
	ReasonModelLimit      = "Model training limit reached"
	UpgradeHintDefault    = "Upgrade your plan to continue"
	UpgradeHintReactivate = "Renew or reactivate your subscription to continue"
)

// QuotaDecision is the outcome of a quota check. Denials are values, not errors.
type QuotaDecision struct {
	Allowed     bool
	Action      UsageAction
	Used        int
	Limit       *int
	Remaining   *int
	Reason      string
	Code        string
	UpgradeHint string
}

// EvaluateQuota applies the entitlement rules for one action at time now.
func EvaluateQuota(sub *Subscription, plan *SubscriptionPlan, period *UsagePeriod, action UsageAction, now time.Time) QuotaDecision {
	limit := plan.LimitFor(action)
	d := QuotaDecision{Action: action, Limit: limit}
	if period != nil {
		d.Used = period.Used(action)
		d.Remaining = period.Remaining(action, limit)
	} else if limit != nil {
		r := *limit
		d.Remaining = &r
	}

	switch {
	case !sub.IsActive():
		d.Reason, d.Code, d.UpgradeHint = ReasonNotActive, "subscription_inactive", UpgradeHintReactivate
	case sub.IsExpired(now):
		d.Reason, d.Code, d.UpgradeHint = ReasonExpired, "subscription_expired", UpgradeHintReactivate
	case limit != nil && d.Used >= *limit:
		d.Code, d.UpgradeHint = "limit_reached", UpgradeHintDefault
		if action == ActionTrainModel {
			d.Reason = ReasonModelLimit
		} else {
			d.Reason = ReasonImageLimit
		}
	default:
		d.Allowed = true
	}
	return d
}
