package revive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hazyhaar/domstate/broker"
	"github.com/hazyhaar/domstate/dom"
	"github.com/hazyhaar/domstate/dom/htmldoc"
	"github.com/hazyhaar/domstate/state"
)

const page = `<html><body>
<div id="card" class="card" style="color: red">Hello <b>world</b></div>
<button id="save" disabled="">Save</button>
<button id="open">Open</button>
<img id="logo" src="/a.png" alt="Logo">
</body></html>`

func newDoc(t *testing.T) *htmldoc.Document {
	t.Helper()
	d, err := htmldoc.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func lookup(t *testing.T, d dom.Document, id string) dom.Element {
	t.Helper()
	el, err := d.Lookup(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return el
}

func attrOf(t *testing.T, d dom.Document, id, name string) (string, bool) {
	t.Helper()
	v, ok, err := lookup(t, d, id).Attr(name)
	if err != nil {
		t.Fatal(err)
	}
	return v, ok
}

func TestRestore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(d)

	if _, err := c.Record(ctx, "before", false, "card"); err != nil {
		t.Fatal(err)
	}

	el := lookup(t, d, "card")
	el.SetInnerHTML("changed")
	el.RemoveAttr("class")
	el.SetAttr("title", "new")
	el.SetAttr("style", "color: blue")

	out := c.Restore(ctx, "before")
	if out.Status != Applied || out.Err != nil {
		t.Fatalf("outcome: %+v", out)
	}
	if got, _ := el.InnerHTML(); got != "Hello <b>world</b>" {
		t.Errorf("html: got %q", got)
	}
	if v, ok := attrOf(t, d, "card", "class"); !ok || v != "card" {
		t.Errorf("class: got %q, %v", v, ok)
	}
	if _, ok := attrOf(t, d, "card", "title"); ok {
		t.Error("title should be removed: it was absent at capture")
	}
	if v, _ := attrOf(t, d, "card", "style"); v != "color: red;" {
		t.Errorf("style: got %q, want the captured color back", v)
	}
}

func TestStore_Overwrites(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(d)

	c.Store("l", One(state.Snapshot{ID: "logo", Alt: state.Value("first")})).
		Store("l", One(state.Snapshot{ID: "logo", Alt: state.Value("second")}))

	if out := c.Restore(ctx, "l"); out.Status != Applied {
		t.Fatalf("outcome: %+v", out)
	}
	if v, _ := attrOf(t, d, "logo", "alt"); v != "second" {
		t.Errorf("alt: got %q, want second", v)
	}
	if e, _ := c.Lookup("l"); e.Len() != 1 {
		t.Errorf("entries accumulated: %d", e.Len())
	}
}

func TestClear_ThenRestore(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(d)
	c.Store("a", One(state.Snapshot{ID: "logo", Alt: state.Value("x")}))
	c.Store("b", Many(state.Snapshot{ID: "logo"}))

	c.Clear()
	if n := len(c.Labels()); n != 0 {
		t.Fatalf("labels after clear: %d", n)
	}

	out := c.Restore(ctx, "a")
	if out.Status != Skipped || !errors.Is(out.Err, ErrLabelNotFound) {
		t.Errorf("restore after clear: %+v", out)
	}
	res := c.RestoreAll(ctx, "b")
	if !errors.Is(res.Err, ErrLabelNotFound) || len(res.Items) != 0 {
		t.Errorf("restore-all after clear: %+v", res)
	}
	if v, _ := attrOf(t, d, "logo", "alt"); v != "Logo" {
		t.Errorf("document touched: alt=%q", v)
	}
}

func TestRestoreAll_PerItemGuard(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(d)

	c.Store("batch", Many(
		state.Snapshot{ID: "logo", Alt: state.Value("A")},
		state.Snapshot{Alt: state.Value("B")}, // no id
		state.Snapshot{ID: "ghost", Alt: state.Value("G")},
		state.Snapshot{ID: "open", Title: state.Value("C")},
	))

	res := c.RestoreAll(ctx, "batch")
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.Applied() != 2 || res.Skipped() != 2 || res.OK() {
		t.Fatalf("counts: applied=%d skipped=%d", res.Applied(), res.Skipped())
	}
	if !errors.Is(res.Items[1].Err, state.ErrMissingID) {
		t.Errorf("item 1: %v", res.Items[1].Err)
	}
	if !errors.Is(res.Items[2].Err, dom.ErrNotFound) {
		t.Errorf("item 2: %v", res.Items[2].Err)
	}
	if ids := res.SkippedIDs(); len(ids) != 2 || ids[0] != "" || ids[1] != "ghost" {
		t.Errorf("skipped ids: %q", ids)
	}
	if v, _ := attrOf(t, d, "logo", "alt"); v != "A" {
		t.Errorf("A not applied: %q", v)
	}
	if v, _ := attrOf(t, d, "open", "title"); v != "C" {
		t.Errorf("C not applied after failures: %q", v)
	}
}

func TestRestore_ShapeMismatch(t *testing.T) {
	ctx := context.Background()
	c := New(newDoc(t))
	c.Store("single", One(state.Snapshot{ID: "logo"}))
	c.Store("batch", Many(state.Snapshot{ID: "logo"}))

	if out := c.Restore(ctx, "batch"); !errors.Is(out.Err, ErrShapeMismatch) || out.Status != Skipped {
		t.Errorf("restore on batch: %+v", out)
	}
	if res := c.RestoreAll(ctx, "single"); !errors.Is(res.Err, ErrShapeMismatch) {
		t.Errorf("restore-all on single: %+v", res)
	}
}

type panicDoc struct{ dom.Document }

func (p panicDoc) Lookup(ctx context.Context, id string) (dom.Element, error) {
	if id == "boom" {
		panic("element exploded")
	}
	return p.Document.Lookup(ctx, id)
}

func TestRestoreAll_RecoversPanics(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(panicDoc{d})
	c.Store("b", Many(
		state.Snapshot{ID: "boom", Alt: state.Value("x")},
		state.Snapshot{ID: "logo", Alt: state.Value("after")},
	))

	res := c.RestoreAll(ctx, "b")
	if res.Items[0].Status != Skipped || res.Items[0].Err == nil {
		t.Errorf("panicking item: %+v", res.Items[0])
	}
	if res.Items[1].Status != Applied {
		t.Errorf("item after panic: %+v", res.Items[1])
	}
	if v, _ := attrOf(t, d, "logo", "alt"); v != "after" {
		t.Errorf("alt: %q", v)
	}

	c.Store("s", One(state.Snapshot{ID: "boom"}))
	if out := c.Restore(ctx, "s"); out.Status != Skipped {
		t.Errorf("single panic: %+v", out)
	}
}

func TestRestoreAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := New(newDoc(t))
	c.Store("b", Many(state.Snapshot{ID: "logo"}, state.Snapshot{ID: "open"}))

	res := c.RestoreAll(ctx, "b")
	if res.Skipped() != 2 {
		t.Fatalf("skipped: %d", res.Skipped())
	}
	for _, o := range res.Items {
		if !errors.Is(o.Err, context.Canceled) {
			t.Errorf("%s: %v", o.ID, o.Err)
		}
	}
}

func TestStore_Isolation(t *testing.T) {
	c := New(newDoc(t))
	snaps := []state.Snapshot{{ID: "logo", Alt: state.Value("a")}}
	c.Store("l", Many(snaps...))
	snaps[0].Alt = state.Value("mutated")

	e, _ := c.Lookup("l")
	got := e.Snapshots()
	if v, _ := got[0].Alt.Get(); v != "a" {
		t.Errorf("store aliased caller slice: %q", v)
	}
	got[0].ID = "other"
	e2, _ := c.Lookup("l")
	if e2.Snapshots()[0].ID != "logo" {
		t.Error("store aliased returned slice")
	}
}

func TestRecord(t *testing.T) {
	ctx := context.Background()
	c := New(newDoc(t))

	if _, err := c.Record(ctx, "x", false, "logo", "open"); err == nil {
		t.Error("single record with two ids should fail")
	}
	e, err := c.Record(ctx, "x", true, "logo", "open")
	if err != nil {
		t.Fatal(err)
	}
	if !e.IsBatch() || e.Len() != 2 {
		t.Errorf("entry: batch=%v len=%d", e.IsBatch(), e.Len())
	}
	if labels := c.Labels(); len(labels) != 1 || labels[0] != "x" {
		t.Errorf("labels: %q", labels)
	}
}

func TestEntryJSON(t *testing.T) {
	one := One(state.Snapshot{ID: "a", Title: state.Value("t")})
	data, err := json.Marshal(one)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"id":"a","title":"t"}` {
		t.Errorf("one: %s", data)
	}

	var back Entry
	if err := json.Unmarshal([]byte(`[{"id":"a"},{"id":"b","disabled":null}]`), &back); err != nil {
		t.Fatal(err)
	}
	if !back.IsBatch() || back.Len() != 2 {
		t.Fatalf("many: batch=%v len=%d", back.IsBatch(), back.Len())
	}
	if back.Snapshots()[1].Disabled.Kind() != state.KindRemove {
		t.Error("null did not decode to Remove")
	}

	if err := json.Unmarshal([]byte(`"x"`), &back); err == nil {
		t.Error("expected error for string entry")
	}
}

func TestEmitSubscribe(t *testing.T) {
	ctx := context.Background()
	c := New(newDoc(t))

	var got []string
	unsub, err := c.Subscribe("form", "field.*", func(data any, env broker.Envelope) {
		got = append(got, env.Topic+":"+data.(string))
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Emit(ctx, "form", "field.changed", "name"); err != nil {
		t.Fatal(err)
	}
	unsub()
	c.Emit(ctx, "form", "field.changed", "ignored")

	if len(got) != 1 || got[0] != "field.changed:name" {
		t.Errorf("deliveries: %q", got)
	}
}

func TestSetBroker_KeepsStore(t *testing.T) {
	ctx := context.Background()
	c := New(newDoc(t))
	c.Store("keep", One(state.Snapshot{ID: "logo"}))

	bus := broker.NewBus()
	var n int
	bus.Subscribe(broker.Subscription{Topic: "t", Callback: func(any, broker.Envelope) { n++ }})
	c.SetBroker(bus)

	c.Emit(ctx, "", "t", nil)
	if n != 1 {
		t.Errorf("new broker not used: %d", n)
	}
	if _, ok := c.Lookup("keep"); !ok {
		t.Error("SetBroker dropped the store")
	}

	c.SetBroker(broker.NewStdout(nil))
	if _, err := c.Subscribe("", "t", func(any, broker.Envelope) {}); !errors.Is(err, broker.ErrSubscribeUnsupported) {
		t.Errorf("subscribe on publish-only broker: %v", err)
	}

	c.SetBroker(nil)
	if err := c.Emit(ctx, "", "t", nil); !errors.Is(err, ErrNoBroker) {
		t.Errorf("emit without broker: %v", err)
	}
	if _, err := c.Subscribe("", "t", func(any, broker.Envelope) {}); !errors.Is(err, ErrNoBroker) {
		t.Errorf("subscribe without broker: %v", err)
	}
}

func TestOn(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(d)

	var calls []string
	record := func(ev *dom.Event) { calls = append(calls, ev.TargetID) }

	if _, err := c.On(ctx, "save", "click", record); err != nil {
		t.Fatal(err)
	}
	if _, err := c.On(ctx, "open", "click", record); err != nil {
		t.Fatal(err)
	}

	ev := d.Dispatch("save", "click", "")
	if len(calls) != 0 || !ev.DefaultPrevented() {
		t.Errorf("disabled click: calls=%q prevented=%v", calls, ev.DefaultPrevented())
	}

	ev = d.Dispatch("open", "click", "")
	if len(calls) != 1 || !ev.DefaultPrevented() {
		t.Errorf("enabled click: calls=%q prevented=%v", calls, ev.DefaultPrevented())
	}

	// disabled is read at dispatch time
	lookup(t, d, "save").RemoveAttr("disabled")
	d.Dispatch("save", "click", "")
	if len(calls) != 2 {
		t.Errorf("re-enabled click not delivered: %q", calls)
	}
}

func TestOn_NonClickOnDisabled(t *testing.T) {
	d := newDoc(t)
	c := New(d)
	var n int
	c.On(context.Background(), "save", "focus", func(*dom.Event) { n++ })
	d.Dispatch("save", "focus", "")
	if n != 1 {
		t.Errorf("focus on disabled element: %d calls", n)
	}
}

type plainDoc struct{ dom.Document }

func TestOn_NoEvents(t *testing.T) {
	c := New(plainDoc{newDoc(t)})
	if _, err := c.On(context.Background(), "open", "click", func(*dom.Event) {}); !errors.Is(err, ErrNoEvents) {
		t.Errorf("got %v", err)
	}
}

func TestDrift(t *testing.T) {
	ctx := context.Background()
	d := newDoc(t)
	c := New(d)
	c.Record(ctx, "l", true, "logo", "open")

	reports, err := c.Drift(ctx, "l")
	if err != nil {
		t.Fatal(err)
	}
	if len(reports) != 0 {
		t.Fatalf("fresh capture drifted: %+v", reports)
	}

	lookup(t, d, "logo").SetAttr("alt", "Changed")
	lookup(t, d, "open").SetAttr("disabled", "")

	reports, _ = c.Drift(ctx, "l")
	if len(reports) != 2 {
		t.Fatalf("reports: %+v", reports)
	}
	if reports[0].ID != "logo" || reports[0].Changes[0].Field != "alt" {
		t.Errorf("logo report: %+v", reports[0])
	}
	if reports[1].Changes[0].Field != "disabled" {
		t.Errorf("open report: %+v", reports[1])
	}

	if _, err := c.Drift(ctx, "missing"); !errors.Is(err, ErrLabelNotFound) {
		t.Errorf("missing label: %v", err)
	}
}
