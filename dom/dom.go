// Package dom defines the DOM collaborator contracts used by the state codec
// and the revive controller. Implementations live in subpackages: htmldoc
// (in-memory x/net/html trees) and roddoc (a live Chrome page via Rod).
//
// The contract is deliberately narrow: find an element by id, read and write
// its attributes, its inner content, its text, and merge inline style.
package dom

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no element carries the requested id.
var ErrNotFound = errors.New("dom: element not found")

// Document locates elements by id.
type Document interface {
	// Lookup returns the element with the given id, or an error wrapping
	// ErrNotFound. The returned Element is bound to ctx for its lifetime.
	Lookup(ctx context.Context, id string) (Element, error)
}

// Element is the read/write surface of a single live element.
type Element interface {
	// Attr returns the attribute value and whether the attribute is present.
	Attr(name string) (string, bool, error)
	SetAttr(name, value string) error
	RemoveAttr(name string) error

	InnerHTML() (string, error)
	SetInnerHTML(html string) error

	// Text returns the concatenated text content of the element subtree.
	Text() (string, error)
	// SetText replaces all children with a single text node.
	SetText(text string) error

	// MergeStyle merges CSS declarations into the inline style attribute.
	// Existing properties are updated in place, new ones are appended.
	MergeStyle(css string) error
}

// Querier lists element ids carrying a given attribute, in document order.
// Elements without an id are reported with an empty string so callers can
// account for them.
type Querier interface {
	IDsWithAttr(ctx context.Context, attr string) ([]string, error)
}

// EventTarget registers event listeners on elements.
type EventTarget interface {
	// Listen attaches fn to eventType on the element with the given id.
	// The returned cancel func detaches it.
	Listen(ctx context.Context, id, eventType string, fn Listener) (cancel func(), err error)
}
