package checkoutevents

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myevents"
)

const (
	TopicName             = "checkout"
	checkoutCompletedName = TopicName + ".completed"
)

// CheckoutEventService is implemented by everyone that consumes the checkout topic.
type CheckoutEventService interface {
	Subscribe(c context.Context) error
	OnCheckoutCompleted(c context.Context, topic string, event CheckoutCompleted) error
}

func DispatchEvent(c context.Context, reader io.Reader, service CheckoutEventService) error {
	envelope, err := myevents.ParseEventEnvelope(reader)
	if err != nil {
		return myerrors.NewInvalidInputError(err)
	}

	switch envelope.EventTypeName {
	case checkoutCompletedName:
		{
			event := CheckoutCompleted{}
			err := json.Unmarshal([]byte(envelope.EventPayload), &event)
			if err != nil {
				return myerrors.NewInvalidInputError(err)
			}
			return service.OnCheckoutCompleted(c, envelope.Topic, event)
		}
	default:
		return myerrors.NewNotImplementedError(fmt.Errorf("unsupported event type %s", envelope.EventTypeName))
	}
}

type CheckoutStatus string

const (
	CheckoutStatusUndefined CheckoutStatus = ""
	CheckoutStatusSuccess   CheckoutStatus = "success"
	CheckoutStatusPending   CheckoutStatus = "pending"
	CheckoutStatusExpired   CheckoutStatus = "expired"
	CheckoutStatusFailed    CheckoutStatus = "failed"
)

// CheckoutCompleted reports the outcome of a hosted checkout session, as verified from a
// payment provider webhook. Values are copied from the provider, never derived locally.
type CheckoutCompleted struct {
	ProviderName   string
	EventUID       string
	EventType      string
	SessionUID     string
	ProductUID     string
	PurchaserName  string
	Email          string
	AmountInCents  int64
	Currency       string
	PaymentStatus  string
	CheckoutStatus CheckoutStatus
}

func (e CheckoutCompleted) GetEventTypeName() string {
	return checkoutCompletedName
}

func (e CheckoutCompleted) GetAggregateName() string {
	return e.SessionUID
}
