package mypublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myevents"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myhttp"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mylog"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mypubsub"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myqueue"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mystore"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
)

// TransactionalPublisher stores events in an outbox within the callers transaction.
// A queued trigger moves them from the outbox onto pub/sub afterwards.
type TransactionalPublisher struct {
	outbox        mystore.Store[myevents.EventEnvelope]
	queue         myqueue.TaskQueuer
	enveloper     enveloper
	pubsub        mypubsub.PubSub
	internalToken string
	logger        mylog.Logger
}

// New returns a publisher whose triggers carry internalToken; triggers without it are refused.
func New(outbox mystore.Store[myevents.EventEnvelope], pubsub mypubsub.PubSub, queue myqueue.TaskQueuer, nower mytime.Nower, internalToken string) *TransactionalPublisher {
	return &TransactionalPublisher{
		outbox:        outbox,
		queue:         queue,
		enveloper:     newEnveloper(nower),
		pubsub:        pubsub,
		internalToken: internalToken,
		logger:        mylog.New("publisher"),
	}
}

func (p *TransactionalPublisher) RegisterEndpoints(c context.Context, router *mux.Router) {
	// Called by the task queue only
	router.Handle("/pubsub/{topic}/{uid}",
		myhttp.NewPipeline(myhttp.InternalToken(p.internalToken, myhttp.NewWriter(p.logger))).
			ThenFunc(p.processTriggerPage())).Methods("PUT")
}

func (p *TransactionalPublisher) CreateTopic(c context.Context, topicName string) error {
	return p.pubsub.CreateTopic(c, topicName)
}

func (p *TransactionalPublisher) Publish(c context.Context, topic string, event myevents.Event) error {
	envelope, err := p.enveloper.do(topic, event)
	if err != nil {
		return fmt.Errorf("error creating envelope: %s", err)
	}
	err = p.outbox.Put(c, envelope.UID, envelope)
	if err != nil {
		return fmt.Errorf("error storing envelope: %s", err)
	}

	err = p.queue.Enqueue(c, myqueue.Task{
		UID:         envelope.UID,
		TriggerPath: fmt.Sprintf("/pubsub/%s/%s", envelope.Topic, envelope.UID),
		Headers:     map[string]string{"Authorization": myhttp.BearerHeader(p.internalToken)},
		Payload:     []byte{},
	})
	if err != nil {
		return fmt.Errorf("error queueing publication-trigger %s: %s", envelope.UID, err)
	}

	p.logger.Log(c, envelope.AggregateUID, mylog.SeverityInfo, "Enqueued event %s on topic %s", envelope.EventTypeName, envelope.Topic)

	return nil
}

func (p *TransactionalPublisher) processTriggerPage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := mycontext.ContextFromHTTPRequest(r)
		errorWriter := myhttp.NewWriter(p.logger)

		topicName := mux.Vars(r)["topic"]
		eventUID := mux.Vars(r)["uid"]

		err := p.processTrigger(c, topicName, eventUID)
		if err != nil {
			attempt, maxAttempts := p.queue.Attempts(c, eventUID)
			p.logger.Log(c, eventUID, mylog.SeverityError, "Trigger attempt %d of %d failed: %s", attempt, maxAttempts, err)
			errorWriter.WriteError(c, w, 1, myerrors.NewUnavailableError(err))
			return
		}

		errorWriter.Write(c, w, http.StatusOK, myhttp.SuccessResponse{
			Message: "Successfully processed trigger",
		})
	}
}

func (p *TransactionalPublisher) processTrigger(c context.Context, topicName string, uid string) error {
	return p.outbox.RunInTransaction(c, func(c context.Context) error {
		// fetch all envelopes that are not yet published
		envelopes, err := p.outbox.Query(c, []mystore.Filter{{Field: "Published", Compare: "=", Value: false}}, "CreatedAt")
		if err != nil {
			return fmt.Errorf("error fetching envelopes: %s", err)
		}
		p.logger.Log(c, uid, mylog.SeverityInfo, "Trigger on topic %s found %d unpublished events", topicName, len(envelopes))

		for _, envelope := range envelopes {
			jsonBytes, err := json.Marshal(envelope)
			if err != nil {
				return fmt.Errorf("error serializing event: %s", err)
			}

			err = p.pubsub.Publish(c, envelope.Topic, string(jsonBytes))
			if err != nil {
				return fmt.Errorf("error publishing event: %s", err)
			}

			// mark as published
			envelope.Published = true
			err = p.outbox.Put(c, envelope.UID, envelope)
			if err != nil {
				return fmt.Errorf("error store envelope: %s", err)
			}
		}
		return nil
	})
}
