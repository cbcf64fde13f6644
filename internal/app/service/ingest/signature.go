package ingest

import (
	"errors"
	"fmt"

	stripeapi "github.com/stripe/stripe-go/v83"
)

// ErrSignatureVerification rejects an event at the boundary: the body is
// never trusted and the engine is never called.
var ErrSignatureVerification = errors.New("ingest: webhook signature verification failed")

// verifyAndParse checks the Stripe-Signature header against the exact raw
// request body and decodes the event envelope. The signature covers the exact
// bytes, so the body must not be re-serialized before verification; stripe-go
// enforces the timestamp tolerance against replay. Any failure here is
// terminal, never retried.
func verifyAndParse(body []byte, header, secret string) (*stripeapi.Event, error) {
	if secret == "" || header == "" {
		return nil, ErrSignatureVerification
	}
	event, err := stripeapi.ConstructEvent(body, header, secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}
	return &event, nil
}
