package fulfillment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypubsub"
	"github.com/MarcGrol/paycheckpowerhouse/services/checkoutevents"
)

const eventPath = "/api/fulfillment/event"

type service struct {
	logger        mylog.Logger
	pubsub        mypubsub.PubSub
	templateLink  string
	baseURL       string
	internalToken string
}

func newService(logger mylog.Logger, pubsub mypubsub.PubSub, templateLink string, baseURL string, internalToken string) *service {
	return &service{
		logger:        logger,
		pubsub:        pubsub,
		templateLink:  templateLink,
		baseURL:       baseURL,
		internalToken: internalToken,
	}
}

// pushEndpoint carries the internal token as query parameter: push subscriptions cannot
// add headers of their own.
func (s *service) pushEndpoint() string {
	return s.baseURL + eventPath + "?" + url.Values{myhttp.TokenParam: {s.internalToken}}.Encode()
}

func (s *service) Subscribe(c context.Context) error {
	err := s.pubsub.CreateTopic(c, checkoutevents.TopicName)
	if err != nil {
		return fmt.Errorf("error creating topic %s: %s", checkoutevents.TopicName, err)
	}

	err = s.pubsub.Subscribe(c, checkoutevents.TopicName, s.pushEndpoint())
	if err != nil {
		return fmt.Errorf("error subscribing to topic %s: %s", checkoutevents.TopicName, err)
	}

	return nil
}

// OnCheckoutCompleted hands out the template once the money is in. Payment state itself
// stays with Stripe, nothing is stored here.
func (s *service) OnCheckoutCompleted(c context.Context, topic string, event checkoutevents.CheckoutCompleted) error {
	switch event.CheckoutStatus {
	case checkoutevents.CheckoutStatusSuccess:
		s.logger.Log(c, event.SessionUID, mylog.SeverityInfo, "Purchase of %s completed by %s (%d %s): template %s",
			event.ProductUID, recipientOf(event), event.AmountInCents, event.Currency, s.templateLink)
	case checkoutevents.CheckoutStatusPending:
		s.logger.Log(c, event.SessionUID, mylog.SeverityInfo, "Purchase of %s awaits payment (%s)", event.ProductUID, event.PaymentStatus)
	case checkoutevents.CheckoutStatusFailed, checkoutevents.CheckoutStatusExpired:
		s.logger.Log(c, event.SessionUID, mylog.SeverityWarn, "Purchase of %s did not complete: %s", event.ProductUID, event.CheckoutStatus)
	default:
		s.logger.Log(c, event.SessionUID, mylog.SeverityWarn, "Purchase of %s has unexpected status '%s'", event.ProductUID, event.CheckoutStatus)
	}
	return nil
}

func recipientOf(event checkoutevents.CheckoutCompleted) string {
	if event.Email == "" {
		return "unknown purchaser"
	}
	if event.PurchaserName == "" {
		return event.Email
	}
	return fmt.Sprintf("%s <%s>", event.PurchaserName, event.Email)
}
