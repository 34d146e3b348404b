package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dodopayments/dodopayments-go"
	"github.com/dodopayments/dodopayments-go/option"

	"ai-image-studio/internal/domain"
	"ai-image-studio/internal/domain/ports/adapter"
	"ai-image-studio/internal/infra/retry"
)

var _ adapter.BillingProvider = (*DodoClient)(nil)

// DodoClient calls the payment provider through its SDK.
type DodoClient struct {
	api    *dodopayments.Client
	policy retry.Policy
}

func NewDodoClient(baseURL, apiKey string, policy retry.Policy, opts ...option.RequestOption) (*DodoClient, error) {
	if apiKey == "" {
		return nil, errors.New("dodo: empty api key")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("dodo: invalid base url: %w", err)
	}
	// retries are driven by the policy, not the SDK
	base := []option.RequestOption{
		option.WithBearerToken(apiKey),
		option.WithBaseURL(strings.TrimRight(baseURL, "/") + "/"),
		option.WithMaxRetries(0),
	}
	return &DodoClient{
		api:    dodopayments.NewClient(append(base, opts...)...),
		policy: policy,
	}, nil
}

func (d *DodoClient) Name() string { return "dodo" }

// checkoutBilling is sent when the user has not given an address yet; the
// hosted payment page collects the real one.
var checkoutBilling = dodopayments.BillingAddressParam{
	City:    dodopayments.F("Default City"),
	Country: dodopayments.F(dodopayments.CountryCodeUs),
	State:   dodopayments.F("Default State"),
	Street:  dodopayments.F("Default Street"),
	Zipcode: dodopayments.F("12345"),
}

// CreateCheckout creates a subscription with a payment link for one unit of the product.
func (d *DodoClient) CreateCheckout(ctx context.Context, req adapter.CheckoutRequest) (*adapter.Checkout, error) {
	if req.ProductID == "" || req.Email == "" {
		return nil, domain.ErrInvalidArgument
	}
	params := dodopayments.SubscriptionNewParams{
		Billing: dodopayments.F(checkoutBilling),
		Customer: dodopayments.F[dodopayments.CustomerRequestUnionParam](dodopayments.NewCustomerParam{
			Email: dodopayments.F(req.Email),
			Name:  dodopayments.F(req.Name),
		}),
		ProductID:   dodopayments.F(req.ProductID),
		Quantity:    dodopayments.F(int64(1)),
		PaymentLink: dodopayments.F(true),
	}
	if req.ReturnURL != "" {
		params.ReturnURL = dodopayments.F(req.ReturnURL)
	}
	if len(req.Metadata) > 0 {
		params.Metadata = dodopayments.F(req.Metadata)
	}

	resp, err := retry.DoValue(ctx, d.policy, func(ctx context.Context) (*dodopayments.SubscriptionNewResponse, error) {
		r, err := d.api.Subscriptions.New(ctx, params)
		return r, classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("dodo: create subscription: %w: %w", domain.ErrUpstream, err)
	}
	if resp.SubscriptionID == "" || resp.PaymentLink == "" {
		return nil, fmt.Errorf("dodo: subscription %q has no payment link: %w", resp.SubscriptionID, domain.ErrUpstream)
	}
	return &adapter.Checkout{
		ExternalSubscriptionID: resp.SubscriptionID,
		ExternalCustomerID:     resp.Customer.CustomerID,
		PaymentID:              resp.PaymentID,
		PaymentLink:            resp.PaymentLink,
	}, nil
}

// CancelSubscription either schedules cancellation at the next billing date or
// cancels right away. The local record follows through the webhook and the caller.
func (d *DodoClient) CancelSubscription(ctx context.Context, externalSubscriptionID string, atPeriodEnd bool) error {
	if externalSubscriptionID == "" {
		return domain.ErrInvalidArgument
	}
	params := dodopayments.SubscriptionUpdateParams{CancelAtNextBillingDate: dodopayments.F(true)}
	if !atPeriodEnd {
		params = dodopayments.SubscriptionUpdateParams{Status: dodopayments.F(dodopayments.SubscriptionStatusCancelled)}
	}
	err := retry.Do(ctx, d.policy, func(ctx context.Context) error {
		_, err := d.api.Subscriptions.Update(ctx, externalSubscriptionID, params)
		return classify(err)
	})
	if err != nil {
		return fmt.Errorf("dodo: cancel subscription: %w: %w", domain.ErrUpstream, err)
	}
	return nil
}

// classify marks 5xx and 429 answers retryable.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *dodopayments.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode >= http.StatusInternalServerError || apiErr.StatusCode == http.StatusTooManyRequests) {
		return retry.Transient(err)
	}
	return err
}
