package dom

import "testing"

func TestMergeStyle(t *testing.T) {
	tests := []struct {
		name     string
		existing string
		incoming string
		want     string
		changed  bool
	}{
		{"empty base", "", "color: red", "color: red;", true},
		{"append", "color: red", "margin: 0", "color: red; margin: 0;", true},
		{"update in place", "color: red; margin: 0", "color: blue", "color: blue; margin: 0;", true},
		{"same values", "color:red;margin:0", "margin: 0", "color: red; margin: 0;", false},
		{"case folded", "COLOR: red", "color: red", "color: red;", false},
		{"important", "color: red", "color: red !important", "color: red !important;", true},
		{"empty incoming", "color: red", "", "color: red;", false},
		{"values kept", "color: red", "color: blue; margin: 0 auto", "color: blue; margin: 0 auto;", true},
		{"function value", "", "color: rgb(1, 2, 3); background: url(a.png)", "color: rgb(1, 2, 3); background: url(a.png);", true},
		{"remove property", "color: red; margin: 0", "color:", "margin: 0;", true},
		{"remove missing", "margin: 0", "color: ;", "margin: 0;", false},
		{"malformed skipped", "", "1x: y; color: red", "color: red;", true},
		{"important spacing", "", "color: red!important", "color: red !important;", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, err := MergeStyle(tt.existing, tt.incoming)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("merged: got %q, want %q", got, tt.want)
			}
			if changed != tt.changed {
				t.Errorf("changed: got %v, want %v", changed, tt.changed)
			}
		})
	}
}

func TestEventPreventDefault(t *testing.T) {
	e := &Event{Type: "click", TargetID: "btn"}
	if e.DefaultPrevented() {
		t.Fatal("new event should not be prevented")
	}
	e.PreventDefault()
	if !e.DefaultPrevented() {
		t.Error("PreventDefault not recorded")
	}
}

func TestParseDecls(t *testing.T) {
	decls, err := parseDecls("  Color : red ; /* note */ margin:0 auto;;width: calc(100% - 2px) ")
	if err != nil {
		t.Fatal(err)
	}
	want := [][2]string{{"color", "red"}, {"margin", "0 auto"}, {"width", "calc(100% - 2px)"}}
	if len(decls) != len(want) {
		t.Fatalf("decls: got %d, want %d", len(decls), len(want))
	}
	for i, w := range want {
		if decls[i].Property != w[0] || decls[i].Value != w[1] {
			t.Errorf("decl %d: got %s=%q, want %s=%q", i, decls[i].Property, decls[i].Value, w[0], w[1])
		}
	}
}
