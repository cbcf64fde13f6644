package ingest

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/fatflowers/subsync/pkg/config"

	stripeapi "github.com/stripe/stripe-go/v83"
	"github.com/stretchr/testify/require"
)

func eventBody(id, eventType string) []byte {
	return []byte(fmt.Sprintf(
		`{"id":%q,"object":"event","type":%q,"created":%d,"api_version":%q,"data":{"object":{}}}`,
		id, eventType, time.Now().Unix(), stripeapi.APIVersion))
}

// signPayload produces a Stripe-Signature header for body: HMAC-SHA256 over
// "<timestamp>.<body>".
func signPayload(body []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), body)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAndParse(t *testing.T) {
	secret := "whsec_test"
	body := eventBody("evt_1", "customer.subscription.updated")
	now := time.Now()

	tests := []struct {
		name    string
		body    []byte
		header  string
		secret  string
		wantErr bool
	}{
		{name: "valid", body: body, header: signPayload(body, secret, now), secret: secret},
		{name: "wrong secret", body: body, header: signPayload(body, "whsec_other", now), secret: secret, wantErr: true},
		{name: "tampered body", body: eventBody("evt_2", "customer.subscription.updated"), header: signPayload(body, secret, now), secret: secret, wantErr: true},
		{name: "stale timestamp", body: body, header: signPayload(body, secret, now.Add(-6*time.Minute)), secret: secret, wantErr: true},
		{name: "missing header", body: body, header: "", secret: secret, wantErr: true},
		{name: "missing secret", body: body, header: signPayload(body, secret, now), secret: "", wantErr: true},
		{name: "garbage header", body: body, header: "t=abc,v1=zz", secret: secret, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := verifyAndParse(tt.body, tt.header, tt.secret)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrSignatureVerification)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "evt_1", event.ID)
			require.Equal(t, stripeapi.EventType("customer.subscription.updated"), event.Type)
		})
	}
}

func TestHandleEvent_RejectsAtBoundary(t *testing.T) {
	secret := "whsec_test"
	svc := &Service{cfg: &config.Config{Stripe: config.StripeConfig{WebhookSecret: secret}}}

	body := eventBody("evt_1", "customer.subscription.updated")
	err := svc.HandleEvent(context.Background(), body, "t=1,v1=00", "trace")
	require.ErrorIs(t, err, ErrSignatureVerification)

	// A correctly signed but undecodable body is rejected for good, not retried.
	bad := []byte(`not json`)
	err = svc.HandleEvent(context.Background(), bad, signPayload(bad, secret, time.Now()), "trace")
	require.ErrorIs(t, err, ErrSignatureVerification)
}
