// Package htmldoc implements the dom contracts over an in-memory
// golang.org/x/net/html tree. It backs server-side documents, the CLI and
// tests: parse a page, capture and restore element state, render it back.
//
// Events are dispatched in-process with Dispatch; there is no script engine.
package htmldoc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"github.com/hazyhaar/domstate/dom"
)

// Document is a parsed HTML document. All element access goes through the
// document mutex, so a Document may be shared between goroutines.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	sanitizer *bluemonday.Policy
	logger    *slog.Logger

	lmu       sync.Mutex
	listeners map[listenerKey][]listenerEntry
	nextToken uint64
}

// Option configures a Document.
type Option func(*Document)

// WithSanitizer filters every SetInnerHTML payload through the given
// bluemonday policy before it is parsed into the tree.
func WithSanitizer(p *bluemonday.Policy) Option {
	return func(d *Document) { d.sanitizer = p }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Document) { d.logger = l }
}

// Parse reads a full HTML document from r.
func Parse(r io.Reader, opts ...Option) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("htmldoc: parse: %w", err)
	}
	d := &Document{
		root:      root,
		logger:    slog.Default(),
		listeners: make(map[listenerKey][]listenerEntry),
	}
	for _, o := range opts {
		o(d)
	}
	if d.logger == nil {
		d.logger = slog.Default()
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s string, opts ...Option) (*Document, error) {
	return Parse(strings.NewReader(s), opts...)
}

// Render writes the whole document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// String renders the document. Render errors yield an empty string.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Lookup returns the first element whose id attribute equals id.
func (d *Document) Lookup(_ context.Context, id string) (dom.Element, error) {
	if id == "" {
		return nil, fmt.Errorf("htmldoc: empty id: %w", dom.ErrNotFound)
	}
	d.mu.Lock()
	n := findByID(d.root, id)
	d.mu.Unlock()
	if n == nil {
		return nil, fmt.Errorf("htmldoc: #%s: %w", id, dom.ErrNotFound)
	}
	return &element{doc: d, node: n}, nil
}

// IDsWithAttr returns the ids of all elements carrying attr, in document order.
func (d *Document) IDsWithAttr(_ context.Context, attr string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var ids []string
	walk(d.root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		if _, ok := getAttr(n, attr); ok {
			id, _ := getAttr(n, "id")
			ids = append(ids, id)
		}
		return true
	})
	return ids, nil
}

func findByID(root *html.Node, id string) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode {
			if v, ok := getAttr(n, "id"); ok && v == id {
				found = n
				return false
			}
		}
		return true
	})
	return found
}

// walk visits n and its descendants depth-first. fn returns false to stop.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}

func getAttr(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}
