package usecase

import (
	"encoding/json"
	"strings"
	"time"
)

// PaymentEnvelope is the body of a payment provider webhook.
type PaymentEnvelope struct {
	Type string          `json:"type" validate:"required"`
	Data json.RawMessage `json:"data" validate:"required"`
}

type eventCustomer struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email"`
}

// SubscriptionEventData is the data of a subscription.* event. Period bounds are unix seconds.
type SubscriptionEventData struct {
	SubscriptionID     string         `json:"subscription_id" validate:"required"`
	CustomerID         string         `json:"customer_id"`
	CustomerEmail      string         `json:"customer_email" validate:"omitempty,email"`
	Customer           *eventCustomer `json:"customer"`
	Status             string         `json:"status"`
	CurrentPeriodStart int64          `json:"current_period_start" validate:"gte=0"`
	CurrentPeriodEnd   int64          `json:"current_period_end" validate:"gte=0"`
	ProductID          string         `json:"product_id" validate:"required"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
}

// Identity returns the email and customer id, preferring the flat fields.
func (d SubscriptionEventData) Identity() (email, customerID string) {
	email, customerID = d.CustomerEmail, d.CustomerID
	if d.Customer != nil {
		if email == "" {
			email = d.Customer.Email
		}
		if customerID == "" {
			customerID = d.Customer.CustomerID
		}
	}
	return strings.TrimSpace(email), strings.TrimSpace(customerID)
}

// Period converts the unix bounds; missing bounds become [now, now+30d).
func (d SubscriptionEventData) Period(now time.Time, length time.Duration) (time.Time, time.Time) {
	start, end := now, now.Add(length)
	if d.CurrentPeriodStart > 0 {
		start = time.Unix(d.CurrentPeriodStart, 0).UTC()
	}
	if d.CurrentPeriodEnd > 0 {
		end = time.Unix(d.CurrentPeriodEnd, 0).UTC()
	} else if d.CurrentPeriodStart > 0 {
		end = start.Add(length)
	}
	return start, end
}

// PaymentEventData is the data of a payment.* event. Amount is in minor units.
type PaymentEventData struct {
	PaymentID      string         `json:"payment_id" validate:"required"`
	SubscriptionID string         `json:"subscription_id"`
	CustomerID     string         `json:"customer_id"`
	CustomerEmail  string         `json:"customer_email" validate:"omitempty,email"`
	Customer       *eventCustomer `json:"customer"`
	Amount         int64          `json:"amount" validate:"gte=0"`
	Currency       string         `json:"currency"`
	Status         string         `json:"status"`
	PaymentMethod  string         `json:"payment_method"`
	ErrorMessage   string         `json:"error_message"`
}

func (d PaymentEventData) Identity() (email, customerID string) {
	return SubscriptionEventData{CustomerEmail: d.CustomerEmail, CustomerID: d.CustomerID, Customer: d.Customer}.Identity()
}

// TrainingHints are the query parameters the training webhook URL was built with.
type TrainingHints struct {
	UserID   string
	ModelID  string
	FileName string
}
