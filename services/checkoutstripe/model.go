package checkoutstripe

import (
	"errors"
	"time"
)

var (
	ErrUnknownProduct   = errors.New("unknown product")
	ErrSessionNotFound  = errors.New("checkout session not found")
	ErrGateway          = errors.New("payment gateway failure")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

type CheckoutRequest struct {
	ProductID      string
	Email          string
	Name           string
	IdempotencyKey string
}

type CheckoutResponse struct {
	URL       string
	SessionID string
}

// SessionView is what the confirmation page shows. Every field comes straight from the
// payment provider.
type SessionView struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Email         string `json:"email,omitempty"`
	PaymentStatus string `json:"paymentStatus"`
	Status        string `json:"status"`
	ProductUID    string `json:"productId,omitempty"`
}

// WebhookEventRecord marks a provider event as processed. It is bookkeeping of
// deliveries, not an order.
type WebhookEventRecord struct {
	EventUID   string
	EventType  string
	SessionUID string
	ReceivedAt time.Time
}

// checkoutForm is the body of both the json call and the html-form fallback.
type checkoutForm struct {
	ProductID      string `json:"productId" form:"productId"`
	Email          string `json:"email" form:"email"`
	Name           string `json:"name" form:"name"`
	IdempotencyKey string `json:"idempotencyKey" form:"idempotencyKey"`
}

type checkoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

const (
	metadataProductUID    = "productUID"
	metadataPurchaserName = "purchaserName"
)
