package checkoutstripe

import (
	"context"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

//go:generate mockgen -source=payer.go -package checkoutstripe -destination payer_mock.go Payer
type Payer interface {
	CreateCheckoutSession(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error)
	GetCheckoutSession(c context.Context, sessionID string) (stripe.CheckoutSession, error)
}

type stripePayer struct {
	api *client.API
}

// NewPayer returns a payer bound to its own client, so the secret key is not kept in
// package level state of the stripe library.
func NewPayer(secretKey string) Payer {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripePayer{
		api: api,
	}
}

func (p *stripePayer) CreateCheckoutSession(c context.Context, params stripe.CheckoutSessionParams) (stripe.CheckoutSession, error) {
	params.Context = c
	session, err := p.api.CheckoutSessions.New(&params)
	if err != nil {
		return stripe.CheckoutSession{}, err
	}
	return *session, nil
}

func (p *stripePayer) GetCheckoutSession(c context.Context, sessionID string) (stripe.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = c
	session, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return stripe.CheckoutSession{}, err
	}
	return *session, nil
}
