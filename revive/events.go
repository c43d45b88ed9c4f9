package revive

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/domstate/broker"
	"github.com/hazyhaar/domstate/dom"
)

// ErrNoEvents is returned by On when the document cannot register listeners.
var ErrNoEvents = errors.New("revive: document does not support events")

// ErrNoBroker is returned by Emit and Subscribe after SetBroker(nil).
var ErrNoBroker = errors.New("revive: no broker")

// SetBroker replaces the broker. The store is untouched.
func (c *Controller) SetBroker(b broker.Broker) *Controller {
	c.mu.Lock()
	c.broker = b
	c.mu.Unlock()
	return c
}

func (c *Controller) currentBroker() broker.Broker {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.broker
}

// Emit publishes data on channel/topic through the broker.
func (c *Controller) Emit(ctx context.Context, channel, topic string, data any) error {
	b := c.currentBroker()
	if b == nil {
		return fmt.Errorf("revive: emit %s/%s: %w", channel, topic, ErrNoBroker)
	}
	if err := b.Publish(ctx, broker.Message{Channel: channel, Topic: topic, Data: data}); err != nil {
		return fmt.Errorf("revive: emit %s/%s: %w", channel, topic, err)
	}
	return nil
}

// Subscribe registers cb for channel/topic on the broker.
func (c *Controller) Subscribe(channel, topic string, cb broker.Callback) (func(), error) {
	b := c.currentBroker()
	if b == nil {
		return nil, fmt.Errorf("revive: subscribe %s/%s: %w", channel, topic, ErrNoBroker)
	}
	cancel, err := b.Subscribe(broker.Subscription{Channel: channel, Topic: topic, Callback: cb})
	if err != nil {
		return nil, fmt.Errorf("revive: subscribe %s/%s: %w", channel, topic, err)
	}
	return cancel, nil
}

// On attaches fn to eventType on element id. A click on an element that
// carries the disabled attribute at dispatch time is blocked: its default
// is prevented and fn is not called. Otherwise fn runs and the default
// action is prevented afterwards.
func (c *Controller) On(ctx context.Context, id, eventType string, fn dom.Listener) (func(), error) {
	target, ok := c.doc.(dom.EventTarget)
	if !ok {
		return nil, ErrNoEvents
	}
	if fn == nil {
		return nil, fmt.Errorf("revive: on #%s %s: nil listener", id, eventType)
	}
	return target.Listen(ctx, id, eventType, func(ev *dom.Event) {
		if eventType == "click" && c.disabled(ctx, id) {
			ev.PreventDefault()
			c.logger.Debug("revive: click blocked on disabled element", "id", id)
			return
		}
		fn(ev)
		ev.PreventDefault()
	})
}

func (c *Controller) disabled(ctx context.Context, id string) bool {
	el, err := c.doc.Lookup(ctx, id)
	if err != nil {
		return false
	}
	_, ok, err := el.Attr("disabled")
	return err == nil && ok
}
