// CLAUDE:SUMMARY dom contracts over a live Chrome page driven by Rod: element access through Eval, events through a CDP runtime binding.
// Package roddoc implements the dom contracts over a live browser page
// driven by Rod (Chrome DevTools Protocol).
//
// Every element operation is one Runtime.evaluate round trip; results come
// back as JSON strings so the Go side never depends on remote object
// handles. Events reach Go through a Runtime binding, which makes them
// asynchronous: the page-side listener always prevents the default action
// because it cannot wait for the Go listener.
package roddoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"

	"github.com/hazyhaar/domstate/dom"
)

const defaultBinding = "__revive_event"

// ErrClosed is returned by Listen after Close.
var ErrClosed = errors.New("roddoc: document closed")

// Document is a dom.Document over a Rod page.
type Document struct {
	page    *rod.Page
	logger  *slog.Logger
	binding string

	// ctx scopes the delivery loop to the Document's lifetime; Close
	// cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	// startLoop installs the page binding and returns the blocking
	// delivery loop.
	startLoop func(ctx context.Context) (wait func(), err error)

	mu        sync.Mutex
	listeners map[listenerKey][]listenerEntry
	attached  map[listenerKey]bool
	nextToken uint64
	bound     bool
	closed    bool
}

type listenerKey struct {
	id        string
	eventType string
}

type listenerEntry struct {
	token uint64
	fn    dom.Listener
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// WithBinding sets the name of the page-global function events are
// reported through. Default: "__revive_event".
func WithBinding(name string) Option {
	return func(d *Document) { d.binding = name }
}

// New wraps page.
func New(page *rod.Page, opts ...Option) *Document {
	d := &Document{
		page:      page,
		logger:    slog.Default(),
		binding:   defaultBinding,
		listeners: make(map[listenerKey][]listenerEntry),
		attached:  make(map[listenerKey]bool),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.startLoop = d.bindingLoop
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d
}

// Page returns the underlying Rod page.
func (d *Document) Page() *rod.Page { return d.page }

// eval runs js with args and decodes the JSON string it returns into out.
func (d *Document) eval(ctx context.Context, out any, js string, args ...any) error {
	res, err := d.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return fmt.Errorf("roddoc: eval: %w", err)
	}
	if out == nil {
		return nil
	}
	return decode(res.Value, out)
}

func decode(v gson.JSON, out any) error {
	if v.Nil() {
		return fmt.Errorf("roddoc: eval returned no value")
	}
	if err := json.Unmarshal([]byte(v.Str()), out); err != nil {
		return fmt.Errorf("roddoc: decode result: %w", err)
	}
	return nil
}

// Lookup checks that an element with id exists and returns a handle bound
// to ctx. The handle re-resolves the id on every call.
func (d *Document) Lookup(ctx context.Context, id string) (dom.Element, error) {
	if id == "" {
		return nil, fmt.Errorf("roddoc: empty id: %w", dom.ErrNotFound)
	}
	var found bool
	if err := d.eval(ctx, &found, `(id) => JSON.stringify(document.getElementById(id) !== null)`, id); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("roddoc: #%s: %w", id, dom.ErrNotFound)
	}
	return &element{doc: d, ctx: ctx, id: id}, nil
}

// IDsWithAttr returns the ids of elements carrying attr, in document order.
func (d *Document) IDsWithAttr(ctx context.Context, attr string) ([]string, error) {
	var ids []string
	err := d.eval(ctx, &ids, `(a) => JSON.stringify(
		Array.from(document.querySelectorAll('[' + CSS.escape(a) + ']')).map(e => e.id))`, attr)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// HTML returns the serialised document.
func (d *Document) HTML(ctx context.Context) (string, error) {
	res, err := d.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return "", fmt.Errorf("roddoc: get DOM: %w", err)
	}
	return res.Value.Str(), nil
}

// Close stops event delivery; later Listen calls fail with ErrClosed.
// The page itself is left open.
func (d *Document) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

// errIfMissing converts a page-side "missing" marker into dom.ErrNotFound.
func errIfMissing(id string, missing bool) error {
	if missing {
		return fmt.Errorf("roddoc: #%s: %w", id, dom.ErrNotFound)
	}
	return nil
}

var _ interface {
	dom.Document
	dom.Querier
	dom.EventTarget
} = (*Document)(nil)
