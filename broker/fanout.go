package broker

import (
	"context"
	"errors"
	"log/slog"
)

// Fanout publishes to every wrapped broker. One broker error does not
// block the others: errors are logged and the first one is returned.
type Fanout struct {
	brokers []Broker
	logger  *slog.Logger
}

// NewFanout creates a Fanout over brokers.
func NewFanout(logger *slog.Logger, brokers ...Broker) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{brokers: brokers, logger: logger}
}

func (f *Fanout) Publish(ctx context.Context, msg Message) error {
	var firstErr error
	for _, b := range f.brokers {
		if err := b.Publish(ctx, msg); err != nil {
			f.logger.Warn("fanout: publish failed", "channel", msg.Channel, "topic", msg.Topic, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Subscribe registers sub on every broker that supports subscriptions.
// It fails with ErrSubscribeUnsupported only when none does.
func (f *Fanout) Subscribe(sub Subscription) (func(), error) {
	var cancels []func()
	for _, b := range f.brokers {
		cancel, err := b.Subscribe(sub)
		if errors.Is(err, ErrSubscribeUnsupported) {
			continue
		}
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return nil, err
		}
		cancels = append(cancels, cancel)
	}
	if len(cancels) == 0 {
		return nil, ErrSubscribeUnsupported
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}, nil
}
