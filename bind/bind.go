// Package bind wires page elements to behaviour from their markup.
//
// An element opts in with a revive-data attribute. With revive-fn, its
// revive-type event calls the named handler from a Registry, passing the
// raw revive-data string. Without revive-fn, revive-data is a JSON message
// {"channel","topic","data"} emitted through the controller when the event
// fires.
//
//	<button id="save" revive-type="click" revive-data='{"channel":"form","topic":"save"}'>
//	<a id="help" revive-type="click" revive-fn="openHelp" revive-data="intro">
package bind

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/hazyhaar/domstate/dom"
)

// Markup attributes read by AutoBind.
const (
	AttrData = "revive-data"
	AttrFn   = "revive-fn"
	AttrType = "revive-type"
)

// Handler is a named behaviour bound through revive-fn. data is the raw
// revive-data attribute of the element.
type Handler func(ctx context.Context, ev *dom.Event, data string)

// Registry maps handler names to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds h under name, replacing any previous handler.
func (r *Registry) Register(name string, h Handler) *Registry {
	r.mu.Lock()
	r.handlers[name] = h
	r.mu.Unlock()
	return r
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Message is the revive-data payload of an emitting element.
type Message struct {
	Channel string          `json:"channel"`
	Topic   string          `json:"topic"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func parseMessage(raw string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return m, fmt.Errorf("bind: %s: %w", AttrData, err)
	}
	if m.Topic == "" {
		return m, fmt.Errorf("bind: %s: topic is required", AttrData)
	}
	return m, nil
}

// payload decodes the message data for publishing. Absent data is nil.
func (m Message) payload() any {
	if len(m.Data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(m.Data, &v); err != nil {
		return nil
	}
	return v
}
