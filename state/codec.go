package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/domstate/dom"
)

// Policy selects how field presence is interpreted.
type Policy uint8

const (
	// PresenceStrict uses the tri-state Field semantics: Unset leaves the
	// element alone, Remove clears, Value(v) writes v even when v is "".
	PresenceStrict Policy = iota
	// PresenceTruthy reproduces the loose truthiness check of the legacy
	// controller: an empty value is indistinguishable from an absent one.
	// Content fields are written only when non-empty; attributes are set
	// when non-empty and removed otherwise.
	PresenceTruthy
)

func (p Policy) String() string {
	if p == PresenceTruthy {
		return "truthy"
	}
	return "strict"
}

// ParsePolicy maps "strict" / "truthy" to a Policy. Empty means strict.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PresenceStrict, nil
	case "truthy":
		return PresenceTruthy, nil
	}
	return PresenceStrict, fmt.Errorf("state: unknown presence policy %q", s)
}

// Codec converts between live elements and Snapshots.
type Codec struct {
	policy Policy
	logger *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec)

// WithPolicy sets the presence policy. Default: PresenceStrict.
func WithPolicy(p Policy) Option {
	return func(c *Codec) { c.policy = p }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Codec) { c.logger = l }
}

// New creates a Codec.
func New(opts ...Option) *Codec {
	c := &Codec{logger: slog.Default()}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Policy returns the configured presence policy.
func (c *Codec) Policy() Policy { return c.policy }

// Capture reads the state of the element with the given id. A missing
// element yields a Snapshot whose fields are all Unset; individual read
// errors leave the affected field Unset. Capture never fails.
func (c *Codec) Capture(ctx context.Context, doc dom.Document, id string) Snapshot {
	snap := Snapshot{ID: id}

	el, err := doc.Lookup(ctx, id)
	if err != nil {
		c.logger.Debug("state: capture on missing element", "id", id, "error", err)
		return snap
	}

	if v, err := el.InnerHTML(); err == nil {
		snap.HTML = Value(v)
	} else {
		c.logger.Debug("state: read html failed", "id", id, "error", err)
	}
	if v, err := el.Text(); err == nil {
		snap.Text = Value(v)
	} else {
		c.logger.Debug("state: read text failed", "id", id, "error", err)
	}

	snap.CSS = c.readAttr(el, id, "style")
	for _, name := range Attributes {
		*snap.ptr(name) = c.readAttr(el, id, name)
	}
	return snap
}

func (c *Codec) readAttr(el dom.Element, id, name string) Field {
	v, ok, err := el.Attr(name)
	if err != nil {
		c.logger.Debug("state: read attribute failed", "id", id, "attr", name, "error", err)
		return Field{}
	}
	if !ok || (c.policy == PresenceTruthy && v == "") {
		return Remove()
	}
	return Value(v)
}

// Apply writes snap onto the live element it identifies. Every field is
// attempted even after a write error; all write errors are joined.
// A missing element returns an error wrapping dom.ErrNotFound and writes
// nothing.
func (c *Codec) Apply(ctx context.Context, doc dom.Document, snap Snapshot) error {
	if snap.ID == "" {
		return ErrMissingID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	el, err := doc.Lookup(ctx, snap.ID)
	if err != nil {
		return fmt.Errorf("state: apply #%s: %w", snap.ID, err)
	}

	var errs []error
	if c.policy == PresenceTruthy {
		errs = c.applyTruthy(el, snap)
	} else {
		errs = c.applyStrict(el, snap)
	}
	if len(errs) > 0 {
		return fmt.Errorf("state: apply #%s: %w", snap.ID, errors.Join(errs...))
	}
	return nil
}

func (c *Codec) applyStrict(el dom.Element, snap Snapshot) []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch snap.HTML.Kind() {
	case KindValue:
		add(el.SetInnerHTML(snap.HTML.value))
	case KindRemove:
		add(el.SetInnerHTML(""))
	}

	switch snap.Text.Kind() {
	case KindValue:
		// A captured snapshot carries both html and its text rendering.
		// Writing text after html would flatten the markup, so text is
		// only written when the content does not already read as it.
		if snap.HTML.Kind() == KindValue {
			if cur, err := el.Text(); err == nil && cur == snap.Text.value {
				break
			}
		}
		add(el.SetText(snap.Text.value))
	case KindRemove:
		add(el.SetText(""))
	}

	switch snap.CSS.Kind() {
	case KindValue:
		add(el.MergeStyle(snap.CSS.value))
	case KindRemove:
		add(el.RemoveAttr("style"))
	}

	for _, name := range Attributes {
		f := *snap.ptr(name)
		switch f.Kind() {
		case KindValue:
			add(el.SetAttr(name, f.value))
		case KindRemove:
			add(el.RemoveAttr(name))
		}
	}
	return errs
}

func (c *Codec) applyTruthy(el dom.Element, snap Snapshot) []error {
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if snap.HTML.truthy() {
		add(el.SetInnerHTML(snap.HTML.value))
	}
	if snap.Text.truthy() {
		add(el.SetText(snap.Text.value))
	}
	if snap.CSS.truthy() {
		add(el.MergeStyle(snap.CSS.value))
	}

	for _, name := range Attributes {
		f := *snap.ptr(name)
		if f.truthy() {
			add(el.SetAttr(name, f.value))
		} else {
			add(el.RemoveAttr(name))
		}
	}
	return errs
}
