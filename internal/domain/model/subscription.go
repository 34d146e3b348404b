package model

import (
	"math"
	"strings"
	"time"

	"ai-image-studio/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
)

// DefaultPeriod is the length of a trial and of a rolled-over billing window.
const DefaultPeriod = 30 * 24 * time.Hour

// Subscription is the authoritative record of a user's plan and billing window.
type Subscription struct {
	ID                     string // UUID
	UserID                 string
	PlanID                 string
	Status                 SubscriptionStatus
	CurrentPeriodStart     time.Time
	CurrentPeriodEnd       time.Time
	TrialStart             *time.Time
	TrialEnd               *time.Time
	ExternalSubscriptionID *string // nil for auto-provisioned trials
	ExternalCustomerID     *string
	CancelAtPeriodEnd      bool
	CancelledAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewTrialSubscription provisions a trialing subscription on the given plan starting at now.
func NewTrialSubscription(id, userID string, plan *SubscriptionPlan, now time.Time) (*Subscription, error) {
	if id == "" || userID == "" || plan == nil {
		return nil, domain.ErrInvalidArgument
	}
	end := now.Add(DefaultPeriod)
	return &Subscription{
		ID:                 id,
		UserID:             userID,
		PlanID:             plan.ID,
		Status:             SubscriptionStatusTrialing,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   end,
		TrialStart:         &now,
		TrialEnd:           &end,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// IsActive reports whether the status grants access (active or trialing).
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive || s.Status == SubscriptionStatusTrialing
}

// IsExpired reports whether now is past the current period end.
func (s *Subscription) IsExpired(now time.Time) bool {
	return now.After(s.CurrentPeriodEnd)
}

func (s *Subscription) IsFreeTier() bool {
	return s.ExternalSubscriptionID == nil || *s.ExternalSubscriptionID == ""
}

// TrialDaysRemaining is rounded up and never negative; 0 when there is no trial.
func (s *Subscription) TrialDaysRemaining(now time.Time) int {
	if s.Status != SubscriptionStatusTrialing || s.TrialEnd == nil {
		return 0
	}
	return daysUntil(*s.TrialEnd, now)
}

func (s *Subscription) BillingDaysRemaining(now time.Time) int {
	return daysUntil(s.CurrentPeriodEnd, now)
}

func daysUntil(t, now time.Time) int {
	d := t.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}

// ParseSubscriptionStatus maps a provider status string onto the local enum.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trialing":
		return SubscriptionStatusTrialing, true
	case "active":
		return SubscriptionStatusActive, true
	case "past_due", "on_hold", "failed", "paused":
		return SubscriptionStatusPastDue, true
	case "cancelled", "canceled":
		return SubscriptionStatusCancelled, true
	case "expired":
		return SubscriptionStatusExpired, true
	}
	return "", false
}

// SubscriptionTransition is the set of fields a provider subscription event may set.
type SubscriptionTransition struct {
	Status             SubscriptionStatus
	PeriodStart        time.Time
	PeriodEnd          time.Time
	CancelAtPeriodEnd  bool
	ExternalCustomerID string
	PlanID             string
	// Reactivates is true for event types that explicitly (re)start billing.
	Reactivates bool
	At          time.Time
}

// ApplyTransition merges t into s. A cancelled or expired subscription keeps its
// status unless the transition explicitly reactivates it.
func (s *Subscription) ApplyTransition(t SubscriptionTransition) {
	status := t.Status
	terminal := s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusExpired
	if terminal && !t.Reactivates && (status == SubscriptionStatusActive || status == SubscriptionStatusTrialing) {
		status = s.Status
	}
	if status != "" {
		s.Status = status
	}
	if t.PlanID != "" {
		s.PlanID = t.PlanID
	}
	if !t.PeriodStart.IsZero() {
		s.CurrentPeriodStart = t.PeriodStart
	}
	if !t.PeriodEnd.IsZero() {
		s.CurrentPeriodEnd = t.PeriodEnd
	}
	s.CancelAtPeriodEnd = t.CancelAtPeriodEnd
	if t.ExternalCustomerID != "" {
		c := t.ExternalCustomerID
		s.ExternalCustomerID = &c
	}
	if s.Status == SubscriptionStatusCancelled {
		if s.CancelledAt == nil {
			at := t.At
			s.CancelledAt = &at
		}
	} else {
		s.CancelledAt = nil
	}
	s.UpdatedAt = t.At
}
