package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/hazyhaar/domstate/archive"
	"github.com/hazyhaar/domstate/broker"
	"github.com/hazyhaar/domstate/revive"
	"github.com/hazyhaar/domstate/state"
)

func TestSplitIDs(t *testing.T) {
	got := splitIDs(" a, ,b,c ")
	if strings.Join(got, "|") != "a|b|c" {
		t.Errorf("got %q", got)
	}
	if splitIDs("") != nil {
		t.Error("empty input should give nil")
	}
}

func TestSanitizer(t *testing.T) {
	if sanitizer("none") != nil {
		t.Error("none should disable sanitizing")
	}
	if p := sanitizer("strict"); p == nil || p.Sanitize("<b>x</b>") != "x" {
		t.Error("strict policy should strip tags")
	}
	if p := sanitizer("ugc"); p == nil || p.Sanitize("<b>x</b><script>y</script>") != "<b>x</b>" {
		t.Error("ugc policy should keep formatting and drop scripts")
	}
}

func TestBuildBroker(t *testing.T) {
	single := buildBroker([]revive.BrokerConfig{{Type: "memory"}}, nil)
	if _, ok := single.(*broker.Bus); !ok {
		t.Errorf("single memory broker: got %T", single)
	}
	multi := buildBroker([]revive.BrokerConfig{{Type: "memory"}, {Type: "webhook", URL: "http://127.0.0.1:1", Retries: 1}}, nil)
	if _, ok := multi.(*broker.Fanout); !ok {
		t.Errorf("several brokers: got %T", multi)
	}
}

func TestWriteMarkdown(t *testing.T) {
	e := revive.Many(
		state.Snapshot{ID: "card", HTML: state.Value("<p><strong>Hi</strong> there</p>")},
		state.Snapshot{ID: "logo"},
	)
	var buf bytes.Buffer
	if err := writeMarkdown(&buf, e); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"## #card", "**Hi** there", "## #logo", "_no content_"} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestPrintDrift(t *testing.T) {
	color.NoColor = true

	var buf bytes.Buffer
	printDrift(&buf, nil)
	if strings.TrimSpace(buf.String()) != "no drift" {
		t.Errorf("empty: got %q", buf.String())
	}

	buf.Reset()
	printDrift(&buf, []revive.DriftReport{{
		ID: "card",
		Changes: []state.Change{
			{Field: "text", Ops: []state.TextOp{{Op: "equal", Text: "a"}, {Op: "delete", Text: "b"}, {Op: "insert", Text: "c"}}},
			{Field: "class", Stored: state.Value("on"), Live: state.Value("off")},
			{Field: "title", Stored: state.Remove(), Live: state.Value("hi")},
		},
	}})
	out := buf.String()
	for _, want := range []string{"#card", "text: abc", "class: off -> on", "title: hi -> (absent)"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

const servePage = `<html><body>
<div id="card" class="open">Hello</div>
<button id="reset" revive-type="click" revive-fn="restore" revive-data="initial">Reset</button>
</body></html>`

func TestSetup_FileSourceWithArchive(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "page.html")
	db := filepath.Join(dir, "revive.db")
	cfgPath := filepath.Join(dir, "revive.yaml")

	if err := os.WriteFile(page, []byte(servePage), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := "log_level: error\ndocument:\n  source: file\n  path: " + page + "\narchive:\n  path: " + db + "\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	rt, err := setup(ctx, cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(rt.binds.Bound) != 1 || rt.binds.Bound[0].Fn != "restore" {
		t.Errorf("bindings: got %+v, problems %v", rt.binds.Bound, rt.binds.Problems)
	}
	if _, err := rt.ctrl.Record(ctx, "initial", false, "card"); err != nil {
		t.Fatal(err)
	}
	rt.close()

	a, err := archive.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	e, err := a.Load(ctx, "initial")
	if err != nil {
		t.Fatalf("label not exported on close: %v", err)
	}
	snap, _ := e.Single()
	if got, _ := snap.Class.Get(); got != "open" {
		t.Errorf("archived class: got %q", got)
	}
}
