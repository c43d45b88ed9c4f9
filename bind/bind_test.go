package bind

import (
	"context"
	"errors"
	"testing"

	"github.com/hazyhaar/domstate/broker"
	"github.com/hazyhaar/domstate/dom"
	"github.com/hazyhaar/domstate/dom/htmldoc"
	"github.com/hazyhaar/domstate/revive"
)

const page = `<html><body>
<button id="save" revive-type="click" revive-data='{"channel":"form","topic":"form.save","data":{"step":2}}'>Save</button>
<a id="help" revive-type="click" revive-fn="openHelp" revive-data="intro">Help</a>
<a id="unknown" revive-type="click" revive-fn="nope" revive-data="x">?</a>
<span id="broken" revive-type="click" revive-data="{not json">!</span>
<span revive-type="click" revive-data='{"topic":"t"}'>anonymous</span>
<span id="notype" revive-data='{"topic":"t"}'>no type</span>
<button id="off" disabled revive-type="click" revive-data='{"topic":"off"}'>Off</button>
</body></html>`

func TestAutoBind(t *testing.T) {
	ctx := context.Background()
	d, err := htmldoc.ParseString(page)
	if err != nil {
		t.Fatal(err)
	}
	bus := broker.NewBus()
	c := revive.New(d, revive.WithBroker(bus))

	var helpData string
	reg := NewRegistry().Register("openHelp", func(_ context.Context, ev *dom.Event, data string) {
		helpData = ev.TargetID + ":" + data
	})

	var envs []broker.Envelope
	bus.Subscribe(broker.Subscription{Channel: "form", Topic: "form.*", Callback: func(_ any, env broker.Envelope) {
		envs = append(envs, env)
	}})
	var offFired bool
	bus.Subscribe(broker.Subscription{Topic: "off", Callback: func(any, broker.Envelope) { offFired = true }})

	rep, err := AutoBind(ctx, c, d, reg)
	if err != nil {
		t.Fatal(err)
	}

	if len(rep.Bound) != 3 {
		t.Errorf("bound: %+v", rep.Bound)
	}
	problems := map[string]bool{}
	for _, p := range rep.Problems {
		problems[p.ID] = true
	}
	for _, id := range []string{"unknown", "broken", "", "notype"} {
		if !problems[id] {
			t.Errorf("expected problem for %q, got %+v", id, rep.Problems)
		}
	}

	ev := d.Dispatch("save", "click", "")
	if len(envs) != 1 || envs[0].Topic != "form.save" {
		t.Fatalf("emitted: %+v", envs)
	}
	if m, _ := envs[0].Data.(map[string]any); m["step"] != float64(2) {
		t.Errorf("data: %#v", envs[0].Data)
	}
	if !ev.DefaultPrevented() {
		t.Error("default not prevented")
	}

	d.Dispatch("help", "click", "")
	if helpData != "help:intro" {
		t.Errorf("handler data: %q", helpData)
	}

	d.Dispatch("off", "click", "")
	if offFired {
		t.Error("click on disabled element emitted")
	}

	rep.Cancel()
	d.Dispatch("save", "click", "")
	if len(envs) != 1 {
		t.Error("listener still attached after Cancel")
	}
}

type failingQuerier struct{}

func (failingQuerier) IDsWithAttr(context.Context, string) ([]string, error) {
	return nil, errors.New("page gone")
}

func TestAutoBind_ScanError(t *testing.T) {
	d, _ := htmldoc.ParseString(page)
	if _, err := AutoBind(context.Background(), revive.New(d), failingQuerier{}, nil); err == nil {
		t.Fatal("expected scan error")
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", func(context.Context, *dom.Event, string) {}).
		Register("a", func(context.Context, *dom.Event, string) {})

	if names := reg.Names(); len(names) != 2 || names[0] != "a" {
		t.Errorf("names: %q", names)
	}
	if _, ok := reg.Lookup("zzz"); ok {
		t.Error("unexpected handler")
	}
}
