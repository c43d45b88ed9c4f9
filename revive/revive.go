// CLAUDE:SUMMARY Controller that captures element state snapshots, stores them under labels and restores them with per-item outcomes.
// Package revive runs the snapshot lifecycle of page elements: capture their
// presentational state, keep it under a label, and later restore one
// element or a batch of elements to it. It also passes messages through an
// injected broker and wires DOM events to callbacks.
//
// A Controller owns its label store; there is no package-level instance.
//
//	c := revive.New(doc, revive.WithBroker(bus))
//	c.Store("initial", revive.Many(c.Capture(ctx, "name", "save")...))
//	...
//	res := c.RestoreAll(ctx, "initial")
package revive

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/hazyhaar/domstate/broker"
	"github.com/hazyhaar/domstate/dom"
	"github.com/hazyhaar/domstate/state"
)

// Controller holds labelled snapshots for one document.
type Controller struct {
	doc    dom.Document
	codec  *state.Codec
	logger *slog.Logger

	mu     sync.RWMutex
	labels map[string]Entry
	broker broker.Broker

	// applyMu keeps the DOM writes of one restore run together.
	applyMu sync.Mutex
}

// Option configures a Controller.
type Option func(*Controller)

// WithBroker sets the broker used by Emit and Subscribe. Default: an
// in-process broker.Bus.
func WithBroker(b broker.Broker) Option {
	return func(c *Controller) { c.broker = b }
}

// WithCodec sets the state codec. Default: state.New() (strict presence).
func WithCodec(codec *state.Codec) Option {
	return func(c *Controller) { c.codec = codec }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// New creates a Controller over doc with an empty store.
func New(doc dom.Document, opts ...Option) *Controller {
	c := &Controller{
		doc:    doc,
		labels: make(map[string]Entry),
	}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.codec == nil {
		c.codec = state.New(state.WithLogger(c.logger))
	}
	if c.broker == nil {
		c.broker = broker.NewBus(broker.WithBusLogger(c.logger))
	}
	return c
}

// Document returns the document the controller works against.
func (c *Controller) Document() dom.Document { return c.doc }

// Codec returns the controller's state codec.
func (c *Controller) Codec() *state.Codec { return c.codec }

// Clear empties the store.
func (c *Controller) Clear() *Controller {
	c.mu.Lock()
	c.labels = make(map[string]Entry)
	c.mu.Unlock()
	c.logger.Debug("revive: store cleared")
	return c
}

// Store puts e under label, replacing whatever was there.
func (c *Controller) Store(label string, e Entry) *Controller {
	e = Entry{batch: e.IsBatch(), snaps: e.Snapshots()}
	c.mu.Lock()
	c.labels[label] = e
	c.mu.Unlock()
	c.logger.Debug("revive: stored", "label", label, "batch", e.IsBatch(), "snapshots", e.Len())
	return c
}

// Lookup returns the entry stored under label.
func (c *Controller) Lookup(label string) (Entry, bool) {
	c.mu.RLock()
	e, ok := c.labels[label]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return Entry{batch: e.batch, snaps: e.Snapshots()}, true
}

// Labels returns the stored labels, sorted.
func (c *Controller) Labels() []string {
	c.mu.RLock()
	labels := make([]string, 0, len(c.labels))
	for l := range c.labels {
		labels = append(labels, l)
	}
	c.mu.RUnlock()
	sort.Strings(labels)
	return labels
}

// Capture snapshots the elements with the given ids, in order. Missing
// elements yield snapshots with only the id set.
func (c *Controller) Capture(ctx context.Context, ids ...string) []state.Snapshot {
	snaps := make([]state.Snapshot, 0, len(ids))
	for _, id := range ids {
		snaps = append(snaps, c.codec.Capture(ctx, c.doc, id))
	}
	return snaps
}

// Record captures ids and stores them under label, as a batch or as a
// single snapshot. A single entry needs exactly one id.
func (c *Controller) Record(ctx context.Context, label string, batch bool, ids ...string) (Entry, error) {
	if !batch && len(ids) != 1 {
		return Entry{}, fmt.Errorf("revive: record %q: single entry needs exactly one id, got %d", label, len(ids))
	}
	snaps := c.Capture(ctx, ids...)
	var e Entry
	if batch {
		e = Many(snaps...)
	} else {
		e = One(snaps[0])
	}
	c.Store(label, e)
	return e, nil
}

// Restore applies the single snapshot stored under label. It never panics:
// an absent label, a batch entry or a failed apply are reported as a
// Skipped outcome.
func (c *Controller) Restore(ctx context.Context, label string) Outcome {
	e, ok := c.Lookup(label)
	if !ok {
		return c.skip(label, "", fmt.Errorf("%w: %q", ErrLabelNotFound, label))
	}
	snap, ok := e.Single()
	if !ok {
		return c.skip(label, "", fmt.Errorf("%w: %q holds a batch, use RestoreAll", ErrShapeMismatch, label))
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	out := c.apply(ctx, snap)
	if out.Status == Skipped {
		c.logger.Warn("revive: restore skipped", "label", label, "id", out.ID, "error", out.Err)
	}
	return out
}

// RestoreAll applies every snapshot of the batch stored under label, in
// order. Each item is guarded on its own: a malformed or failing snapshot
// is recorded as Skipped and the following ones are still applied. Once ctx
// is done, the remaining items are skipped with the context error.
func (c *Controller) RestoreAll(ctx context.Context, label string) BatchResult {
	res := BatchResult{Label: label}
	e, ok := c.Lookup(label)
	if !ok {
		res.Err = fmt.Errorf("%w: %q", ErrLabelNotFound, label)
		c.logger.Warn("revive: restore-all skipped", "label", label, "error", res.Err)
		return res
	}
	if !e.IsBatch() {
		res.Err = fmt.Errorf("%w: %q holds a single snapshot, use Restore", ErrShapeMismatch, label)
		c.logger.Warn("revive: restore-all skipped", "label", label, "error", res.Err)
		return res
	}

	c.applyMu.Lock()
	defer c.applyMu.Unlock()
	res.Items = make([]Outcome, 0, e.Len())
	for _, snap := range e.snaps {
		if err := ctx.Err(); err != nil {
			res.Items = append(res.Items, Outcome{ID: snap.ID, Status: Skipped, Err: err})
			continue
		}
		res.Items = append(res.Items, c.apply(ctx, snap))
	}

	if n := res.Skipped(); n > 0 {
		c.logger.Warn("revive: restore-all partial", "label", label,
			"applied", res.Applied(), "skipped", n, "skipped_ids", res.SkippedIDs())
	} else {
		c.logger.Debug("revive: restore-all", "label", label, "applied", res.Applied())
	}
	return res
}

// apply runs the codec on one snapshot and converts errors and panics into
// a Skipped outcome.
func (c *Controller) apply(ctx context.Context, snap state.Snapshot) (out Outcome) {
	out = Outcome{ID: snap.ID, Status: Applied}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{ID: snap.ID, Status: Skipped, Err: fmt.Errorf("revive: apply #%s: panic: %v", snap.ID, r)}
		}
	}()
	if err := c.codec.Apply(ctx, c.doc, snap); err != nil {
		out = Outcome{ID: snap.ID, Status: Skipped, Err: err}
	}
	return out
}

func (c *Controller) skip(label, id string, err error) Outcome {
	c.logger.Warn("revive: restore skipped", "label", label, "error", err)
	return Outcome{ID: id, Status: Skipped, Err: err}
}
