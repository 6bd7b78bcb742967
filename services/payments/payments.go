// Package payments verifies and decodes Stripe webhook deliveries.
package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	// MaxBodyBytes caps the webhook payload read from the request.
	MaxBodyBytes = 1024 * 1024
	// SignatureHeader carries the provider signature.
	SignatureHeader = "Stripe-Signature"
	// ChargeSucceeded is the only event type that fulfils an order.
	ChargeSucceeded = "charge.succeeded"
	// Provider names the source recorded alongside processed events.
	Provider = "stripe"
)

// ErrInvalidSignature covers a missing header and any verification failure.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is a verified provider event.
type Event struct {
	ID   string
	Type string
	// Raw is the JSON of the event's data object.
	Raw json.RawMessage
}

// Charge is the part of a charge object needed to fulfil an order.
type Charge struct {
	ID          string
	ProductID   string
	Email       string
	AmountCents int64
}

// Verifier checks payload signatures against the endpoint secret.
type Verifier struct {
	secret string
}

// NewVerifier returns a Verifier for secret.
func NewVerifier(secret string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("webhook secret is required")
	}
	return &Verifier{secret: secret}, nil
}

// ParseEvent verifies sigHeader over payload and returns the decoded event. Nothing in
// payload is interpreted before the signature checks out.
func (v *Verifier) ParseEvent(payload []byte, sigHeader string) (Event, error) {
	if strings.TrimSpace(sigHeader) == "" {
		return Event{}, ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return fromStripe(event), nil
}

func fromStripe(event stripe.Event) Event {
	out := Event{ID: event.ID, Type: string(event.Type)}
	if event.Data != nil {
		out.Raw = event.Data.Raw
	}
	return out
}

type stripeCharge struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	Metadata       map[string]string `json:"metadata"`
	BillingDetails struct {
		Email string `json:"email"`
	} `json:"billing_details"`
}

// DecodeCharge extracts the purchased product, buyer email and amount from a charge event.
// Missing fields come back empty; validation is left to the caller.
func DecodeCharge(event Event) (Charge, error) {
	if event.Type != ChargeSucceeded {
		return Charge{}, fmt.Errorf("event %s has type %q, not %q", event.ID, event.Type, ChargeSucceeded)
	}
	if len(event.Raw) == 0 {
		return Charge{}, fmt.Errorf("event %s carries no data object", event.ID)
	}

	var c stripeCharge
	if err := json.Unmarshal(event.Raw, &c); err != nil {
		return Charge{}, fmt.Errorf("decode charge: %w", err)
	}

	return Charge{
		ID:          c.ID,
		ProductID:   strings.TrimSpace(c.Metadata["productId"]),
		Email:       strings.TrimSpace(c.BillingDetails.Email),
		AmountCents: c.Amount,
	}, nil
}
