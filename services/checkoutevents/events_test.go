package checkoutevents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myevents"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
)

type recordingService struct {
	received []CheckoutCompleted
}

func (s *recordingService) Subscribe(c context.Context) error {
	return nil
}

func (s *recordingService) OnCheckoutCompleted(c context.Context, topic string, event CheckoutCompleted) error {
	s.received = append(s.received, event)
	return nil
}

func TestDispatchEvent(t *testing.T) {
	c := context.TODO()

	t.Run("checkout completed", func(t *testing.T) {
		// given
		service := &recordingService{}
		event := CheckoutCompleted{
			ProviderName:   "stripe",
			EventUID:       "evt_1",
			SessionUID:     "cs_123",
			ProductUID:     "PAYCHECK_POWERHOUSE",
			AmountInCents:  599,
			Currency:       "usd",
			PaymentStatus:  "paid",
			CheckoutStatus: CheckoutStatusSuccess,
		}

		// when
		err := DispatchEvent(c, pushRequest(t, event.GetEventTypeName(), event), service)

		// then
		assert.NoError(t, err)
		assert.Equal(t, []CheckoutCompleted{event}, service.received)
	})

	t.Run("unknown event type", func(t *testing.T) {
		// given
		service := &recordingService{}

		// when
		err := DispatchEvent(c, pushRequest(t, "checkout.started", CheckoutCompleted{}), service)

		// then
		assert.Error(t, err)
		assert.Equal(t, 501, myerrors.GetHTTPStatus(err))
		assert.Empty(t, service.received)
	})

	t.Run("garbage", func(t *testing.T) {
		err := DispatchEvent(c, strings.NewReader("garbage"), &recordingService{})
		assert.Equal(t, 400, myerrors.GetHTTPStatus(err))
	})
}

func pushRequest(t *testing.T, eventTypeName string, event CheckoutCompleted) *bytes.Reader {
	eventBytes, err := json.Marshal(event)
	assert.NoError(t, err)

	req, err := myevents.NewPushRequest(TopicName, myevents.EventEnvelope{
		UID:           fmt.Sprintf("uid-%s", event.SessionUID),
		CreatedAt:     mytime.ExampleTime,
		Topic:         TopicName,
		AggregateUID:  event.SessionUID,
		EventTypeName: eventTypeName,
		EventPayload:  string(eventBytes),
	})
	assert.NoError(t, err)

	reqBytes, err := json.Marshal(req)
	assert.NoError(t, err)

	return bytes.NewReader(reqBytes)
}
