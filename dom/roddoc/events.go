package roddoc

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/domstate/dom"
)

type bindingPayload struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

// Listen attaches fn to eventType on element id. ctx bounds the setup
// calls only. The first Listen installs the Runtime binding and starts the
// delivery loop, which runs until Close or until the page stops reporting
// events; the next Listen after that reinstalls it. Listeners run on the
// delivery goroutine.
func (d *Document) Listen(ctx context.Context, id, eventType string, fn dom.Listener) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("roddoc: listen #%s: nil listener", id)
	}
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if _, err := d.Lookup(ctx, id); err != nil {
		return nil, err
	}
	if err := d.ensureBinding(); err != nil {
		return nil, err
	}

	key := listenerKey{id: id, eventType: eventType}
	d.mu.Lock()
	needAttach := !d.attached[key]
	d.mu.Unlock()

	if needAttach {
		var ok bool
		err := d.eval(ctx, &ok, `(id, type, binding) => {
			const el = document.getElementById(id);
			if (!el) return JSON.stringify(false);
			const seen = window[binding + "_attached"] || (window[binding + "_attached"] = new Set());
			if (seen.has(id + "\u0000" + type)) return JSON.stringify(true);
			seen.add(id + "\u0000" + type);
			el.addEventListener(type, (ev) => {
				ev.preventDefault();
				const t = ev.target;
				const detail = t && "value" in t ? String(t.value) : "";
				window[binding](JSON.stringify({id: id, type: type, detail: detail}));
			});
			return JSON.stringify(true);
		}`, id, eventType, d.binding)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("roddoc: #%s: %w", id, dom.ErrNotFound)
		}
	}

	d.mu.Lock()
	d.attached[key] = true
	d.nextToken++
	token := d.nextToken
	d.listeners[key] = append(d.listeners[key], listenerEntry{token: token, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		entries := d.listeners[key]
		for i, le := range entries {
			if le.token == token {
				d.listeners[key] = append(entries[:i:i], entries[i+1:]...)
				return
			}
		}
	}, nil
}

// ensureBinding starts the delivery loop unless one is running.
func (d *Document) ensureBinding() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	if d.bound {
		return nil
	}
	wait, err := d.startLoop(d.ctx)
	if err != nil {
		return err
	}
	d.bound = true

	go func() {
		wait()
		d.loopStopped()
	}()
	return nil
}

// loopStopped forgets the binding state so the next Listen starts over.
func (d *Document) loopStopped() {
	d.mu.Lock()
	d.bound = false
	d.attached = make(map[listenerKey]bool)
	d.mu.Unlock()
	d.logger.Debug("roddoc: event loop stopped")
}

func (d *Document) bindingLoop(ctx context.Context) (func(), error) {
	if err := (proto.RuntimeAddBinding{Name: d.binding}).Call(d.page); err != nil {
		return nil, fmt.Errorf("roddoc: add binding: %w", err)
	}
	return d.page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name == d.binding {
			d.deliver(e.Payload)
		}
	}), nil
}

func (d *Document) deliver(payload string) {
	var p bindingPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		d.logger.Warn("roddoc: bad binding payload", "error", err)
		return
	}

	d.mu.Lock()
	entries := append([]listenerEntry(nil), d.listeners[listenerKey{id: p.ID, eventType: p.Type}]...)
	d.mu.Unlock()

	ev := &dom.Event{Type: p.Type, TargetID: p.ID, Detail: p.Detail}
	for _, le := range entries {
		le.fn(ev)
	}
	d.logger.Debug("roddoc: event", "id", p.ID, "type", p.Type, "listeners", len(entries))
}
