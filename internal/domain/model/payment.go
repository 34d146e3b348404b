package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(strings.ToLower(strings.TrimSpace(s))) {
	case PaymentStatusPending, "processing", "requires_payment_method":
		return PaymentStatusPending, true
	case PaymentStatusSucceeded:
		return PaymentStatusSucceeded, true
	case PaymentStatusFailed, "cancelled", "canceled":
		return PaymentStatusFailed, true
	case PaymentStatusRefunded:
		return PaymentStatusRefunded, true
	}
	return "", false
}

// PaymentTransaction mirrors one provider payment, keyed by its external id.
type PaymentTransaction struct {
	ID                string // UUID
	UserID            string
	SubscriptionID    *string
	ExternalPaymentID string
	Amount            decimal.Decimal // major currency units
	Currency          string
	Status            PaymentStatus
	PaymentMethod     string
	FailureReason     *string
	RefundedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// MinorToMajor converts an amount in minor units (cents) to major units.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
