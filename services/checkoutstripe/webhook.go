package checkoutstripe

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutevents"
)

const (
	signatureHeader = "Stripe-Signature"

	eventSessionCompleted             = "checkout.session.completed"
	eventSessionAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	eventSessionAsyncPaymentFailed    = "checkout.session.async_payment_failed"
	eventSessionExpired               = "checkout.session.expired"
)

type webhookVerifier struct {
	secret string
}

func newWebhookVerifier(secret string) webhookVerifier {
	return webhookVerifier{
		secret: secret,
	}
}

// verify checks the signature over the exact bytes as received and only then decodes
// them. The api-version of the event is not checked: only checkout session fields are used.
func (v webhookVerifier) verify(payload []byte, sigHeader string) (stripe.Event, error) {
	if v.secret == "" {
		return stripe.Event{}, myerrors.NewInternalError(fmt.Errorf("webhook secret not configured"))
	}

	err := webhook.ValidatePayload(payload, sigHeader, v.secret)
	if err != nil {
		return stripe.Event{}, myerrors.NewInvalidInputError(fmt.Errorf("%w: %w", ErrInvalidSignature, err))
	}

	event := stripe.Event{}
	err = json.Unmarshal(payload, &event)
	if err != nil {
		return stripe.Event{}, myerrors.NewInvalidInputError(fmt.Errorf("error parsing webhook event: %s", err))
	}

	return event, nil
}

func checkoutStatusOf(eventType string) (checkoutevents.CheckoutStatus, bool) {
	switch eventType {
	case eventSessionCompleted, eventSessionAsyncPaymentSucceeded:
		return checkoutevents.CheckoutStatusSuccess, true
	case eventSessionAsyncPaymentFailed:
		return checkoutevents.CheckoutStatusFailed, true
	case eventSessionExpired:
		return checkoutevents.CheckoutStatusExpired, true
	default:
		return checkoutevents.CheckoutStatusUndefined, false
	}
}

func sessionOf(event stripe.Event) (stripe.CheckoutSession, error) {
	session := stripe.CheckoutSession{}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return session, fmt.Errorf("event %s carries no data", event.ID)
	}
	err := json.Unmarshal(event.Data.Raw, &session)
	if err != nil {
		return session, fmt.Errorf("error parsing checkout session of event %s: %s", event.ID, err)
	}
	if session.ID == "" {
		return session, fmt.Errorf("event %s carries no checkout session", event.ID)
	}
	return session, nil
}
