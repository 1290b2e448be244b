package mypubsub

import (
	"context"
	"strings"
)

// PubSub fans published envelopes out to push subscribers. Data is the json encoded
// envelope as stored in the outbox.
//
//go:generate mockgen -source=pubsub_api.go -package mypubsub -destination pubsub_mock.go PubSub
type PubSub interface {
	Publish(c context.Context, topic string, data string) error
	CreateTopic(c context.Context, topic string) error
	// Subscribe registers pushEndpoint as push subscriber of topic. Subscribing twice is not an error.
	Subscribe(c context.Context, topic string, pushEndpoint string) error
}

var New func(c context.Context) (PubSub, func(), error)

// loggable strips the query of a push endpoint, which can hold a token.
func loggable(pushEndpoint string) string {
	endpoint, _, _ := strings.Cut(pushEndpoint, "?")
	return endpoint
}
