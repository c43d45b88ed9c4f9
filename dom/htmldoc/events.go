package htmldoc

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domstate/dom"
)

type listenerKey struct {
	id        string
	eventType string
}

type listenerEntry struct {
	token uint64
	fn    dom.Listener
}

// Listen attaches fn to eventType on the element with the given id. The
// element must exist at registration time.
func (d *Document) Listen(ctx context.Context, id, eventType string, fn dom.Listener) (func(), error) {
	if _, err := d.Lookup(ctx, id); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, fmt.Errorf("htmldoc: listen #%s: nil listener", id)
	}

	key := listenerKey{id: id, eventType: eventType}

	d.lmu.Lock()
	d.nextToken++
	token := d.nextToken
	d.listeners[key] = append(d.listeners[key], listenerEntry{token: token, fn: fn})
	d.lmu.Unlock()

	return func() {
		d.lmu.Lock()
		defer d.lmu.Unlock()
		entries := d.listeners[key]
		for i, le := range entries {
			if le.token == token {
				d.listeners[key] = append(entries[:i:i], entries[i+1:]...)
				break
			}
		}
		if len(d.listeners[key]) == 0 {
			delete(d.listeners, key)
		}
	}, nil
}

// Dispatch fires eventType on the element with the given id. Listeners run
// synchronously in registration order on the caller's goroutine. The
// returned event reports whether any listener prevented the default action.
func (d *Document) Dispatch(id, eventType, detail string) *dom.Event {
	ev := &dom.Event{Type: eventType, TargetID: id, Detail: detail}

	d.lmu.Lock()
	entries := append([]listenerEntry(nil), d.listeners[listenerKey{id: id, eventType: eventType}]...)
	d.lmu.Unlock()

	d.logger.Debug("htmldoc: dispatch", "id", id, "type", eventType, "listeners", len(entries))
	for _, le := range entries {
		le.fn(ev)
	}
	return ev
}
