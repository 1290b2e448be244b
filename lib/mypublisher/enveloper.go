package mypublisher

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/MarcGrol/paycheckpowerhouse/lib/myevents"
	"github.com/MarcGrol/paycheckpowerhouse/lib/mytime"
)

type enveloper struct {
	nower mytime.Nower
}

func newEnveloper(nower mytime.Nower) enveloper {
	return enveloper{
		nower: nower,
	}
}

func (e enveloper) do(topic string, event myevents.Event) (myevents.EventEnvelope, error) {
	jsonPayload, err := json.Marshal(event)
	if err != nil {
		return myevents.EventEnvelope{}, fmt.Errorf("error marshalling %s: %s", event.GetEventTypeName(), err)
	}

	return myevents.EventEnvelope{
		// A redelivered webhook produces the same event, and thus the same outbox entry
		UID:           envelopeUID(topic, event.GetEventTypeName(), jsonPayload),
		CreatedAt:     e.nower.Now(),
		Topic:         topic,
		AggregateUID:  event.GetAggregateName(),
		EventTypeName: event.GetEventTypeName(),
		EventPayload:  string(jsonPayload),
	}, nil
}

func envelopeUID(topic string, eventTypeName string, payload []byte) string {
	sha2 := sha256.New()
	sha2.Write([]byte(topic))
	sha2.Write([]byte{0})
	sha2.Write([]byte(eventTypeName))
	sha2.Write([]byte{0})
	sha2.Write(payload)
	return hex.EncodeToString(sha2.Sum(nil))
}
