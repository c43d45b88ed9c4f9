// Package broker defines the publish/subscribe collaborator the revive
// controller emits messages through, plus a few implementations: an
// in-process Bus, a Webhook publisher, a Stdout JSON-lines publisher and a
// Fanout that delivers to several brokers at once.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/hazyhaar/domstate/idgen"
)

// DefaultChannel is used when a message or subscription names no channel.
const DefaultChannel = "/"

// ErrSubscribeUnsupported is returned by publish-only brokers.
var ErrSubscribeUnsupported = errors.New("broker: subscribe not supported")

// Message is what callers publish.
type Message struct {
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
	Data    any    `json:"data,omitempty"`
}

// Envelope is a published message as seen by subscribers and sinks.
type Envelope struct {
	ID        string `json:"id"` // UUIDv7
	Channel   string `json:"channel"`
	Topic     string `json:"topic"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"` // epoch milliseconds
}

// Callback receives the message data and its envelope.
type Callback func(data any, env Envelope)

// Subscription registers a Callback for a channel/topic pattern.
type Subscription struct {
	Channel  string
	Topic    string
	Callback Callback
}

// Broker is the publish/subscribe collaborator.
type Broker interface {
	// Publish emits msg. Delivery guarantees are the implementation's.
	Publish(ctx context.Context, msg Message) error
	// Subscribe registers sub and returns a func that removes it.
	Subscribe(sub Subscription) (unsubscribe func(), err error)
}

// NewEnvelope stamps msg with an id and the current time.
func NewEnvelope(msg Message, newID idgen.Generator) Envelope {
	if newID == nil {
		newID = idgen.Default
	}
	ch := msg.Channel
	if ch == "" {
		ch = DefaultChannel
	}
	return Envelope{
		ID:        newID(),
		Channel:   ch,
		Topic:     msg.Topic,
		Data:      msg.Data,
		Timestamp: time.Now().UnixMilli(),
	}
}
