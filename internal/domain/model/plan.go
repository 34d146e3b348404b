package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ai-image-studio/internal/domain"
)

const (
	FreePlanName        = "free"
	BillingCycleMonthly = "monthly"
)

// SubscriptionPlan is a catalog entry. A nil limit means unlimited.
type SubscriptionPlan struct {
	ID             string // UUID
	Name           string
	Price          decimal.Decimal
	Currency       string
	BillingCycle   string
	ImageLimit     *int
	ModelLimit     *int
	IsActive       bool
	ExternalPlanID *string
	CreatedAt      time.Time
}

func NewSubscriptionPlan(id, name string, price decimal.Decimal, currency string, imageLimit, modelLimit *int, externalPlanID *string) (*SubscriptionPlan, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if id == "" || name == "" || price.IsNegative() {
		return nil, domain.ErrInvalidArgument
	}
	if (imageLimit != nil && *imageLimit < 0) || (modelLimit != nil && *modelLimit < 0) {
		return nil, domain.ErrInvalidArgument
	}
	if currency == "" {
		currency = "USD"
	}
	return &SubscriptionPlan{
		ID:             id,
		Name:           name,
		Price:          price,
		Currency:       strings.ToUpper(currency),
		BillingCycle:   BillingCycleMonthly,
		ImageLimit:     imageLimit,
		ModelLimit:     modelLimit,
		IsActive:       true,
		ExternalPlanID: externalPlanID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// LimitFor returns the plan quota for an action (nil = unlimited).
func (p *SubscriptionPlan) LimitFor(action UsageAction) *int {
	switch action {
	case ActionGenerateImage:
		return p.ImageLimit
	case ActionTrainModel:
		return p.ModelLimit
	}
	return nil
}

func IntPtr(v int) *int { return &v }
