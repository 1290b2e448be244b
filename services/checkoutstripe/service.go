package checkoutstripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v74"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypublisher"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
	"github.com/MarcGrol/paycheckpowerhouse/services/catalog"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutevents"
)

const providerName = "stripe"

type service struct {
	logger        mylog.Logger
	nower         mytime.Nower
	catalog       *catalog.Catalog
	payer         Payer
	verifier      webhookVerifier
	ledger        mystore.Store[WebhookEventRecord]
	publisher     mypublisher.Publisher
	publicBaseURL string
}

// Use dependency injection to isolate the infrastructure and easy testing
func newService(logger mylog.Logger, nower mytime.Nower, catalog *catalog.Catalog, payer Payer, webhookSecret string, ledger mystore.Store[WebhookEventRecord], publisher mypublisher.Publisher, publicBaseURL string) *service {
	return &service{
		logger:        logger,
		nower:         nower,
		catalog:       catalog,
		payer:         payer,
		verifier:      newWebhookVerifier(webhookSecret),
		ledger:        ledger,
		publisher:     publisher,
		publicBaseURL: publicBaseURL,
	}
}

// createCheckoutSession creates a hosted checkout session on the Stripe platform. There is
// exactly one call to Stripe and no retry: the purchaser decides to try again.
func (s *service) createCheckoutSession(c context.Context, baseURL string, req CheckoutRequest) (CheckoutResponse, error) {
	product, found := s.catalog.LookupByID(req.ProductID)
	if !found {
		return CheckoutResponse{}, myerrors.NewInvalidInputError(fmt.Errorf("%w: %s", ErrUnknownProduct, req.ProductID))
	}

	s.logger.Log(c, product.UID, mylog.SeverityInfo, "Start checkout for product %s", product.UID)

	params := checkoutSessionParams(baseURL, product, req)

	// The purchaser may leave the page, the session is created at Stripe regardless
	session, err := s.payer.CreateCheckoutSession(context.WithoutCancel(c), params)
	if err != nil {
		s.logger.Log(c, product.UID, mylog.SeverityError, "Error creating checkout session for product %s: %s", product.UID, err)
		return CheckoutResponse{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: error creating checkout session: %w", ErrGateway, err))
	}

	s.logger.Log(c, product.UID, mylog.SeverityInfo, "Created checkout session %s for product %s", session.ID, product.UID)

	return CheckoutResponse{
		URL:       session.URL,
		SessionID: session.ID,
	}, nil
}

func checkoutSessionParams(baseURL string, product catalog.Product, req CheckoutRequest) stripe.CheckoutSessionParams {
	lineItem := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if product.ExternalPriceRef != "" {
		lineItem.Price = stripe.String(product.ExternalPriceRef)
	} else {
		// Without a configured price the amount from the catalog is used
		lineItem.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(strings.ToLower(product.Currency)),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name:        stripe.String(product.Name),
				Description: stripe.String(product.Description),
			},
			UnitAmount: stripe.Int64(product.Price),
		}
	}

	params := stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{lineItem},
		SuccessURL:        stripe.String(baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(baseURL + "/"),
		ClientReferenceID: stripe.String(product.UID),
	}
	params.AddMetadata(metadataProductUID, product.UID)
	if req.Name != "" {
		params.AddMetadata(metadataPurchaserName, req.Name)
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}

	return params
}

// fetchSession always asks Stripe: the status shown to the purchaser is never cached.
func (s *service) fetchSession(c context.Context, sessionID string) (SessionView, error) {
	if sessionID == "" {
		return SessionView{}, myerrors.NewNotFoundError(fmt.Errorf("%w: empty session id", ErrSessionNotFound))
	}

	session, err := s.payer.GetCheckoutSession(context.WithoutCancel(c), sessionID)
	if err != nil {
		if isNotFound(err) {
			return SessionView{}, myerrors.NewNotFoundError(fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID))
		}
		s.logger.Log(c, sessionID, mylog.SeverityError, "Error fetching checkout session %s: %s", sessionID, err)
		return SessionView{}, myerrors.NewBadGatewayError(fmt.Errorf("%w: error fetching checkout session %s: %w", ErrGateway, sessionID, err))
	}

	return sessionViewOf(session), nil
}

func isNotFound(err error) bool {
	var stripeErr *stripe.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.Code == stripe.ErrorCodeResourceMissing || stripeErr.HTTPStatusCode == http.StatusNotFound
}

func sessionViewOf(session stripe.CheckoutSession) SessionView {
	return SessionView{
		ID:            session.ID,
		Amount:        session.AmountTotal,
		Currency:      string(session.Currency),
		Email:         emailOf(session),
		PaymentStatus: string(session.PaymentStatus),
		Status:        string(session.Status),
		ProductUID:    productUIDOf(session),
	}
}

func emailOf(session stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

func productUIDOf(session stripe.CheckoutSession) string {
	if uid := session.Metadata[metadataProductUID]; uid != "" {
		return uid
	}
	return session.ClientReferenceID
}

// webhookNotification is only reached with a verified event. Stripe delivers at least
// once, so events that were seen before are acknowledged without publishing again.
func (s *service) webhookNotification(c context.Context, event stripe.Event) error {
	eventType := string(event.Type)

	status, handled := checkoutStatusOf(eventType)
	if !handled {
		s.logger.Log(c, event.ID, mylog.SeverityInfo, "Ignored webhook event %s of type %s", event.ID, eventType)
		return nil
	}

	session, err := sessionOf(event)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	if status == checkoutevents.CheckoutStatusSuccess && eventType == eventSessionCompleted && !isPaid(session) {
		// Delayed payment methods complete the session before the money arrives
		status = checkoutevents.CheckoutStatusPending
	}

	s.logger.Log(c, session.ID, mylog.SeverityInfo, "Webhook: event %s on session %s -> %s", eventType, session.ID, status)

	now := s.nower.Now()

	return s.ledger.RunInTransaction(c, func(c context.Context) error {
		// must be idempotent
		_, found, err := s.ledger.Get(c, event.ID)
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error fetching webhook event %s: %s", event.ID, err))
		}
		if found {
			s.logger.Log(c, session.ID, mylog.SeverityInfo, "Webhook event %s was already processed", event.ID)
			return nil
		}

		err = s.publisher.Publish(c, checkoutevents.TopicName, checkoutevents.CheckoutCompleted{
			ProviderName:   providerName,
			EventUID:       event.ID,
			EventType:      eventType,
			SessionUID:     session.ID,
			ProductUID:     productUIDOf(session),
			PurchaserName:  session.Metadata[metadataPurchaserName],
			Email:          emailOf(session),
			AmountInCents:  session.AmountTotal,
			Currency:       string(session.Currency),
			PaymentStatus:  string(session.PaymentStatus),
			CheckoutStatus: status,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error publishing event: %s", err))
		}

		// Recorded last, so a store without rollback still lets Stripe redeliver
		err = s.ledger.Put(c, event.ID, WebhookEventRecord{
			EventUID:   event.ID,
			EventType:  eventType,
			SessionUID: session.ID,
			ReceivedAt: now,
		})
		if err != nil {
			return myerrors.NewInternalError(fmt.Errorf("error storing webhook event %s: %s", event.ID, err))
		}

		return nil
	})
}

func isPaid(session stripe.CheckoutSession) bool {
	return session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}
