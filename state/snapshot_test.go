package state

import (
	"strings"
	"testing"
)

func TestSnapshotJSON_TriState(t *testing.T) {
	s := Snapshot{
		ID:       "btn",
		HTML:     Value(""),
		Disabled: Remove(),
		Width:    Value("0"),
	}
	data, err := Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	got := string(data)
	want := `{"id":"btn","html":"","width":"0","disabled":null}`
	if got != want {
		t.Fatalf("json: got %s, want %s", got, want)
	}

	back, err := Unmarshal(data)
	if err != nil {
		t.Fatal(err)
	}
	if back != s {
		t.Errorf("decoded: got %+v, want %+v", back, s)
	}
	if back.Text.Kind() != KindUnset {
		t.Errorf("absent key: got %v, want unset", back.Text)
	}
}

func TestSnapshotJSON_RejectsNonString(t *testing.T) {
	_, err := Unmarshal([]byte(`{"id":"a","checked":true}`))
	if err == nil || !strings.Contains(err.Error(), "string or null") {
		t.Fatalf("err: got %v", err)
	}
}

func TestSnapshotWith(t *testing.T) {
	base := Snapshot{ID: "a"}
	next := base.With("title", Value("t")).With("bogus", Value("x"))
	if base.Title.Kind() != KindUnset {
		t.Error("With mutated the receiver")
	}
	if v, _ := next.Title.Get(); v != "t" {
		t.Errorf("title: got %v", next.Title)
	}
	if _, ok := next.Field("bogus"); ok {
		t.Error("unknown field reported as known")
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": PresenceStrict, "strict": PresenceStrict, "truthy": PresenceTruthy} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q): got %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("loose"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestDiff(t *testing.T) {
	stored := Snapshot{
		ID:       "card",
		HTML:     Value("Hello <b>world</b>"),
		Class:    Value("card"),
		Disabled: Remove(),
	}
	live := Snapshot{
		ID:       "card",
		HTML:     Value("Hello <b>there</b>"),
		Class:    Value("card"),
		Disabled: Value("disabled"),
		Title:    Value("ignored: unset in stored"),
	}

	changes := Diff(stored, live)
	if len(changes) != 2 {
		t.Fatalf("changes: got %d (%+v), want 2", len(changes), changes)
	}
	if changes[0].Field != FieldHTML || changes[1].Field != "disabled" {
		t.Errorf("fields: got %q, %q", changes[0].Field, changes[1].Field)
	}

	var rebuilt strings.Builder
	for _, op := range changes[0].Ops {
		if op.Op != "delete" {
			rebuilt.WriteString(op.Text)
		}
	}
	if rebuilt.String() != "Hello <b>world</b>" {
		t.Errorf("ops do not rebuild stored: got %q", rebuilt.String())
	}
	if changes[1].Ops != nil {
		t.Error("attribute changes carry no text ops")
	}

	if got := Diff(stored, stored); len(got) != 0 {
		t.Errorf("self diff: got %+v", got)
	}
}
