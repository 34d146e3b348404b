package adapter

import "context"

// CheckoutRequest asks the provider for a hosted payment page for one product.
type CheckoutRequest struct {
	ProductID string
	Email     string
	Name      string
	ReturnURL string
	Metadata  map[string]string
}

// Checkout is a provider subscription awaiting payment. The local subscription
// row is written when the provider's webhook arrives.
type Checkout struct {
	ExternalSubscriptionID string
	ExternalCustomerID     string
	PaymentID              string
	PaymentLink            string
}

// BillingProvider is the port for calls this service makes to the payment provider.
type BillingProvider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	// CancelSubscription cancels now, or at the end of the current period when atPeriodEnd is set.
	CancelSubscription(ctx context.Context, externalSubscriptionID string, atPeriodEnd bool) error
}
