package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
)

var _ adapter.BillingProvider = (*NoopBilling)(nil)

// NoopBilling is used when no provider key is configured (local runs).
type NoopBilling struct {
	log *zerolog.Logger
}

func NewNoopBilling(log *zerolog.Logger) *NoopBilling {
	return &NoopBilling{log: log}
}

func (n *NoopBilling) Name() string { return "noop" }

// CreateCheckout fails: without a provider there is no page to pay on.
func (n *NoopBilling) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
	n.log.Warn().Str("product_id", req.ProductID).Msg("noop billing: checkout requested")
	return nil, fmt.Errorf("billing provider not configured: %w", domain.ErrUpstream)
}

func (n *NoopBilling) CancelSubscription(ctx context.Context, externalSubscriptionID string, atPeriodEnd bool) error {
	n.log.Info().Str("external_subscription_id", externalSubscriptionID).Bool("at_period_end", atPeriodEnd).
		Msg("noop billing: cancel subscription")
	return nil
}
