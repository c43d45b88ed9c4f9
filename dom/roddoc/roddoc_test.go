package roddoc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ysmood/gson"

	"github.com/hazyhaar/domstate/dom"
)

func TestDecode(t *testing.T) {
	var r attrResult
	if err := decode(gson.New(`{"present":true,"value":""}`), &r); err != nil {
		t.Fatal(err)
	}
	if !r.Present || r.Value != "" {
		t.Errorf("got %+v", r)
	}

	var ids []string
	if err := decode(gson.New(`["a","","b"]`), &ids); err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 || ids[1] != "" {
		t.Errorf("ids: %q", ids)
	}

	if err := decode(gson.New(nil), &ids); err == nil {
		t.Error("expected error for nil result")
	}
	if err := decode(gson.New("not json"), &ids); err == nil {
		t.Error("expected error for malformed result")
	}
}

func TestErrIfMissing(t *testing.T) {
	if err := errIfMissing("x", false); err != nil {
		t.Fatal(err)
	}
	if err := errIfMissing("x", true); !errors.Is(err, dom.ErrNotFound) {
		t.Errorf("got %v", err)
	}
}

func TestDeliver(t *testing.T) {
	d := New(nil)
	var got []string
	key := listenerKey{id: "save", eventType: "click"}
	d.listeners[key] = []listenerEntry{
		{token: 1, fn: func(ev *dom.Event) { got = append(got, "first:"+ev.Detail) }},
		{token: 2, fn: func(ev *dom.Event) { got = append(got, "second:"+ev.TargetID) }},
	}

	payload, _ := json.Marshal(bindingPayload{ID: "save", Type: "click", Detail: "v"})
	d.deliver(string(payload))
	d.deliver(`{broken`)
	d.deliver(`{"id":"other","type":"click"}`)

	if len(got) != 2 || got[0] != "first:v" || got[1] != "second:save" {
		t.Errorf("deliveries: %q", got)
	}
}

// stubLoop replaces the CDP binding with a loop the test ends by hand.
type stubLoop struct {
	starts int
	ctxs   []context.Context
	end    chan struct{}
}

func (s *stubLoop) start(ctx context.Context) (func(), error) {
	s.starts++
	s.ctxs = append(s.ctxs, ctx)
	end := make(chan struct{})
	s.end = end
	return func() {
		select {
		case <-ctx.Done():
		case <-end:
		}
	}, nil
}

func waitUnbound(t *testing.T, d *Document) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		bound := d.bound
		d.mu.Unlock()
		if !bound {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("event loop still marked bound")
}

func TestEnsureBinding_RestartsAfterLoopEnds(t *testing.T) {
	d := New(nil)
	loop := &stubLoop{}
	d.startLoop = loop.start

	if err := d.ensureBinding(); err != nil {
		t.Fatal(err)
	}
	if err := d.ensureBinding(); err != nil {
		t.Fatal(err)
	}
	if loop.starts != 1 {
		t.Fatalf("starts: got %d, want 1", loop.starts)
	}
	if loop.ctxs[0] != d.ctx {
		t.Error("loop should run on the document context")
	}

	d.mu.Lock()
	d.attached[listenerKey{id: "save", eventType: "click"}] = true
	d.mu.Unlock()

	close(loop.end)
	waitUnbound(t, d)
	d.mu.Lock()
	attached := len(d.attached)
	d.mu.Unlock()
	if attached != 0 {
		t.Errorf("attached not reset: %d", attached)
	}

	if err := d.ensureBinding(); err != nil {
		t.Fatal(err)
	}
	if loop.starts != 2 {
		t.Errorf("loop not restarted: starts=%d", loop.starts)
	}
}

func TestClose_StopsLoopAndRejectsListen(t *testing.T) {
	d := New(nil)
	loop := &stubLoop{}
	d.startLoop = loop.start

	if err := d.ensureBinding(); err != nil {
		t.Fatal(err)
	}
	d.Close()
	waitUnbound(t, d)
	if loop.ctxs[0].Err() == nil {
		t.Error("Close did not cancel the loop context")
	}

	if err := d.ensureBinding(); !errors.Is(err, ErrClosed) {
		t.Errorf("ensureBinding after Close: got %v", err)
	}
	if _, err := d.Listen(context.Background(), "save", "click", func(*dom.Event) {}); !errors.Is(err, ErrClosed) {
		t.Errorf("Listen after Close: got %v", err)
	}
	if loop.starts != 1 {
		t.Errorf("starts after Close: %d", loop.starts)
	}
}
