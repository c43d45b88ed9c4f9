package bind

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domstate/dom"
	"github.com/hazyhaar/domstate/revive"
)

// Binding is one element wired by AutoBind.
type Binding struct {
	ID    string `json:"id"`
	Event string `json:"event"`
	Fn    string `json:"fn,omitempty"`    // handler name, for revive-fn bindings
	Topic string `json:"topic,omitempty"` // for emitting bindings
}

// Problem is one element AutoBind could not wire.
type Problem struct {
	ID  string `json:"id"`
	Err error  `json:"-"`
}

func (p Problem) Error() string { return fmt.Sprintf("#%s: %v", p.ID, p.Err) }

// Report lists what AutoBind did. Cancel detaches every binding.
type Report struct {
	Bound    []Binding
	Problems []Problem
	cancels  []func()
}

// Cancel removes all listeners attached by AutoBind.
func (r *Report) Cancel() {
	for _, c := range r.cancels {
		c()
	}
	r.cancels = nil
}

// Option configures AutoBind.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// AutoBind scans q for elements carrying revive-data and attaches their
// revive-type listener through c.On. Elements that cannot be wired (no id,
// no event type, unknown handler, malformed message) are reported as
// problems; the scan continues. The error is non-nil only when the scan
// itself fails.
func AutoBind(ctx context.Context, c *revive.Controller, q dom.Querier, reg *Registry, opts ...Option) (*Report, error) {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if reg == nil {
		reg = NewRegistry()
	}

	ids, err := q.IDsWithAttr(ctx, AttrData)
	if err != nil {
		return nil, fmt.Errorf("bind: scan: %w", err)
	}

	rep := &Report{}
	for _, id := range ids {
		b, cancel, err := bindOne(ctx, c, reg, id, o.logger)
		if err != nil {
			rep.Problems = append(rep.Problems, Problem{ID: id, Err: err})
			o.logger.Warn("bind: element skipped", "id", id, "error", err)
			continue
		}
		rep.Bound = append(rep.Bound, b)
		rep.cancels = append(rep.cancels, cancel)
	}
	o.logger.Info("bind: autobind done", "bound", len(rep.Bound), "problems", len(rep.Problems))
	return rep, nil
}

func bindOne(ctx context.Context, c *revive.Controller, reg *Registry, id string, logger *slog.Logger) (Binding, func(), error) {
	if id == "" {
		return Binding{}, nil, fmt.Errorf("bind: element has %s but no id", AttrData)
	}
	el, err := c.Document().Lookup(ctx, id)
	if err != nil {
		return Binding{}, nil, err
	}
	data, _, err := el.Attr(AttrData)
	if err != nil {
		return Binding{}, nil, err
	}
	eventType, ok, err := el.Attr(AttrType)
	if err != nil {
		return Binding{}, nil, err
	}
	if !ok || eventType == "" {
		return Binding{}, nil, fmt.Errorf("bind: missing %s", AttrType)
	}
	fn, _, err := el.Attr(AttrFn)
	if err != nil {
		return Binding{}, nil, err
	}

	b := Binding{ID: id, Event: eventType}
	var listener dom.Listener
	if fn != "" {
		h, ok := reg.Lookup(fn)
		if !ok {
			return Binding{}, nil, fmt.Errorf("bind: unknown handler %q", fn)
		}
		b.Fn = fn
		listener = func(ev *dom.Event) { h(ctx, ev, data) }
	} else {
		msg, err := parseMessage(data)
		if err != nil {
			return Binding{}, nil, err
		}
		b.Topic = msg.Topic
		payload := msg.payload()
		listener = func(*dom.Event) {
			if err := c.Emit(ctx, msg.Channel, msg.Topic, payload); err != nil {
				logger.Warn("bind: emit failed", "id", id, "topic", msg.Topic, "error", err)
			}
		}
	}

	cancel, err := c.On(ctx, id, eventType, listener)
	if err != nil {
		return Binding{}, nil, err
	}
	return b, cancel, nil
}
