package mypublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myevents"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypubsub"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myqueue"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
)

const internalToken = "s3cret"

type sessionPaid struct {
	SessionUID string
}

func (e sessionPaid) GetEventTypeName() string {
	return "checkout.paid"
}

func (e sessionPaid) GetAggregateName() string {
	return e.SessionUID
}

func TestPublisher(t *testing.T) {
	c := context.Background()

	t.Run("publish stores envelope and enqueues trigger", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		_, outbox, pubsub, queue, nower := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).DoAndReturn(func(c context.Context, task myqueue.Task) error {
			assert.Equal(t, fmt.Sprintf("/pubsub/checkout/%s", task.UID), task.TriggerPath)
			assert.Equal(t, "Bearer s3cret", task.Headers["Authorization"])
			return nil
		})
		pubsub.EXPECT().Publish(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		// when
		err := New(outbox, pubsub, queue, nower, internalToken).Publish(c, "checkout", sessionPaid{SessionUID: "cs_123"})

		// then
		assert.NoError(t, err)
		envelopes, err := outbox.List(c)
		assert.NoError(t, err)
		require.Len(t, envelopes, 1)
		assert.Equal(t, "cs_123", envelopes[0].AggregateUID)
		assert.Equal(t, "checkout.paid", envelopes[0].EventTypeName)
		assert.Equal(t, `{"SessionUID":"cs_123"}`, envelopes[0].EventPayload)
		assert.False(t, envelopes[0].Published)
	})

	t.Run("same event gets same uid", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		_, outbox, pubsub, queue, nower := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime).Times(2)
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)

		// when
		publisher := New(outbox, pubsub, queue, nower, internalToken)
		assert.NoError(t, publisher.Publish(c, "checkout", sessionPaid{SessionUID: "cs_123"}))
		assert.NoError(t, publisher.Publish(c, "checkout", sessionPaid{SessionUID: "cs_123"}))

		// then
		envelopes, err := outbox.List(c)
		assert.NoError(t, err)
		assert.Len(t, envelopes, 1)
	})

	t.Run("queue failure", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		_, outbox, pubsub, queue, nower := setup(t, ctrl)

		// given
		nower.EXPECT().Now().Return(mytime.ExampleTime)
		queue.EXPECT().Enqueue(gomock.Any(), gomock.Any()).Return(fmt.Errorf("queue down"))

		// when
		err := New(outbox, pubsub, queue, nower, internalToken).Publish(c, "checkout", sessionPaid{SessionUID: "cs_123"})

		// then
		assert.Error(t, err)
	})

	t.Run("trigger publishes unpublished envelopes", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		router, outbox, pubsub, _, _ := setup(t, ctrl)

		// given
		require.NoError(t, outbox.Put(c, "e1", myevents.EventEnvelope{UID: "e1", Topic: "checkout", CreatedAt: mytime.ExampleTime}))
		require.NoError(t, outbox.Put(c, "e0", myevents.EventEnvelope{UID: "e0", Topic: "checkout", Published: true, CreatedAt: mytime.ExampleTime}))
		pubsub.EXPECT().Publish(gomock.Any(), "checkout", gomock.Any()).DoAndReturn(func(c context.Context, topic string, data string) error {
			envelope := myevents.EventEnvelope{}
			assert.NoError(t, json.Unmarshal([]byte(data), &envelope))
			assert.Equal(t, "e1", envelope.UID)
			return nil
		})

		// when
		request, err := http.NewRequest(http.MethodPut, "/pubsub/checkout/e1", nil)
		assert.NoError(t, err)
		request.Header.Set("Authorization", "Bearer "+internalToken)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 200, response.Code)
		envelope, found, err := outbox.Get(c, "e1")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.True(t, envelope.Published)
	})

	t.Run("trigger fails on pubsub error", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		router, outbox, pubsub, queue, _ := setup(t, ctrl)

		// given
		require.NoError(t, outbox.Put(c, "e1", myevents.EventEnvelope{UID: "e1", Topic: "checkout", CreatedAt: mytime.ExampleTime}))
		pubsub.EXPECT().Publish(gomock.Any(), "checkout", gomock.Any()).Return(fmt.Errorf("pubsub down"))
		queue.EXPECT().Attempts(gomock.Any(), "e1").Return(int32(1), int32(5))

		// when
		request, err := http.NewRequest(http.MethodPut, "/pubsub/checkout/e1", nil)
		assert.NoError(t, err)
		request.Header.Set("Authorization", "Bearer "+internalToken)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 503, response.Code)
		envelope, _, err := outbox.Get(c, "e1")
		assert.NoError(t, err)
		assert.False(t, envelope.Published)
	})

	t.Run("trigger without token is refused", func(t *testing.T) {
		// setup
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		router, outbox, _, _, _ := setup(t, ctrl)

		// given
		require.NoError(t, outbox.Put(c, "e1", myevents.EventEnvelope{UID: "e1", Topic: "checkout", CreatedAt: mytime.ExampleTime}))

		// when
		request, err := http.NewRequest(http.MethodPut, "/pubsub/checkout/e1", nil)
		assert.NoError(t, err)
		response := httptest.NewRecorder()
		router.ServeHTTP(response, request)

		// then
		assert.Equal(t, 403, response.Code)
		envelope, _, err := outbox.Get(c, "e1")
		assert.NoError(t, err)
		assert.False(t, envelope.Published)
	})
}

func setup(t *testing.T, ctrl *gomock.Controller) (*mux.Router, *mystore.InMemoryStore[myevents.EventEnvelope], *mypubsub.MockPubSub, *myqueue.MockTaskQueuer, *mytime.MockNower) {
	c := context.Background()

	outbox, _, err := mystore.NewInMemoryStore[myevents.EventEnvelope](c)
	require.NoError(t, err)
	pubsub := mypubsub.NewMockPubSub(ctrl)
	queue := myqueue.NewMockTaskQueuer(ctrl)
	nower := mytime.NewMockNower(ctrl)

	router := mux.NewRouter()
	New(outbox, pubsub, queue, nower, internalToken).RegisterEndpoints(c, router)

	return router, outbox, pubsub, queue, nower
}
