// CLAUDE:SUMMARY In-process pub/sub bus with channel/topic routing and '*'/'#' topic wildcards.
package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hazyhaar/domstate/idgen"
)

// Bus delivers messages in-process, synchronously, on the publisher's
// goroutine, in subscription order.
//
// Topics are dot-separated. In a subscription topic, "*" matches exactly
// one segment and "#" matches zero or more segments.
type Bus struct {
	mu     sync.RWMutex
	subs   []*busSub
	nextID uint64
	newID  idgen.Generator
	logger *slog.Logger
}

type busSub struct {
	id      uint64
	channel string
	pattern []string
	cb      Callback
}

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithBusLogger sets a custom logger.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(b *Bus) { b.logger = l }
}

// WithBusIDGenerator sets the envelope id generator.
func WithBusIDGenerator(gen idgen.Generator) BusOption {
	return func(b *Bus) { b.newID = gen }
}

// NewBus creates an empty Bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{newID: idgen.Default, logger: slog.Default()}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Publish delivers msg to every matching subscriber. A panicking callback
// is recovered and logged; the remaining subscribers still run.
func (b *Bus) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := NewEnvelope(msg, b.newID)
	segs := splitTopic(env.Topic)

	b.mu.RLock()
	var targets []*busSub
	for _, s := range b.subs {
		if s.channel == env.Channel && matchTopic(s.pattern, segs) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(s, env)
	}
	b.logger.Debug("bus: published", "channel", env.Channel, "topic", env.Topic, "subscribers", len(targets))
	return nil
}

func (b *Bus) deliver(s *busSub, env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("bus: subscriber panicked",
				"channel", env.Channel, "topic", env.Topic, "panic", fmt.Sprint(r))
		}
	}()
	s.cb(env.Data, env)
}

// Subscribe registers sub. The returned func is idempotent.
func (b *Bus) Subscribe(sub Subscription) (func(), error) {
	if sub.Callback == nil {
		return nil, fmt.Errorf("bus: subscribe %s/%s: nil callback", sub.Channel, sub.Topic)
	}
	ch := sub.Channel
	if ch == "" {
		ch = DefaultChannel
	}

	b.mu.Lock()
	b.nextID++
	s := &busSub{id: b.nextID, channel: ch, pattern: splitTopic(sub.Topic), cb: sub.Callback}
	b.subs = append(b.subs, s)
	b.mu.Unlock()

	return func() { b.remove(s.id) }, nil
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func splitTopic(topic string) []string {
	if topic == "" {
		return nil
	}
	return strings.Split(topic, ".")
}

// matchTopic reports whether segs matches pattern.
func matchTopic(pattern, segs []string) bool {
	if len(pattern) == 0 {
		return len(segs) == 0
	}
	switch pattern[0] {
	case "#":
		for i := 0; i <= len(segs); i++ {
			if matchTopic(pattern[1:], segs[i:]) {
				return true
			}
		}
		return false
	case "*":
		return len(segs) > 0 && matchTopic(pattern[1:], segs[1:])
	default:
		return len(segs) > 0 && pattern[0] == segs[0] && matchTopic(pattern[1:], segs[1:])
	}
}
