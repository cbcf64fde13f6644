package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cfgpkg "github.com/fatflowers/subsync/pkg/config"

	stripeapi "github.com/stripe/stripe-go/v83"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Client implements RemoteSource on the Stripe API. Every call runs under the
// configured timeout so a provider outage surfaces as context.DeadlineExceeded
// rather than hanging a webhook or audit pass.
type Client struct {
	sc      *stripeapi.Client
	timeout time.Duration
	log     *zap.SugaredLogger
}

func NewClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) (RemoteSource, error) {
	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("stripe secret key is empty")
	}
	return &Client{
		sc:      stripeapi.NewClient(cfg.Stripe.SecretKey),
		timeout: cfg.Stripe.Timeout(),
		log:     log,
	}, nil
}

func (c *Client) RetrieveSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	sub, err := c.sc.V1Subscriptions.Retrieve(ctx, subscriptionID, nil)
	if err != nil {
		return nil, classify(err)
	}
	return normalizeSubscription(sub), nil
}

func (c *Client) RetrieveCustomer(ctx context.Context, customerID string) (*RemoteCustomer, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cust, err := c.sc.V1Customers.Retrieve(ctx, customerID, nil)
	if err != nil {
		return nil, classify(err)
	}
	return &RemoteCustomer{ID: cust.ID, Email: cust.Email, Metadata: cust.Metadata}, nil
}

func (c *Client) ListSubscriptionsForCustomer(ctx context.Context, customerID string) ([]*RemoteSubscription, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripeapi.SubscriptionListParams{}
	params.Customer = stripeapi.String(customerID)

	var out []*RemoteSubscription
	for sub, err := range c.sc.V1Subscriptions.List(ctx, params) {
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, normalizeSubscription(sub))
	}
	return out, nil
}

// classify maps the Stripe error surface onto the two categories the
// reconciliation engine distinguishes: gone vs. everything else.
func classify(err error) error {
	var serr *stripeapi.Error
	if errors.As(err, &serr) {
		if serr.Code == stripeapi.ErrorCodeResourceMissing || serr.HTTPStatusCode == http.StatusNotFound {
			return ErrNotFound
		}
	}
	return err
}

func normalizeSubscription(sub *stripeapi.Subscription) *RemoteSubscription {
	rs := &RemoteSubscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		rs.CustomerID = sub.Customer.ID
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0).UTC()
		rs.CanceledAt = &t
	}
	// Since the 2025 API the period bounds live on the subscription items.
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			rs.PriceID = item.Price.ID
		}
		if item.CurrentPeriodStart > 0 {
			t := time.Unix(item.CurrentPeriodStart, 0).UTC()
			rs.CurrentPeriodStart = &t
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			rs.CurrentPeriodEnd = &t
		}
	}
	return rs
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
