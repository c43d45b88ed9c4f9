package state

import (
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

// Change is one field that differs between a stored and a live snapshot.
type Change struct {
	Field  string   `json:"field"`
	Stored Field    `json:"stored"`
	Live   Field    `json:"live"`
	Ops    []TextOp `json:"ops,omitempty"` // html/text only, live -> stored
}

// TextOp is one segment of a text delta.
type TextOp struct {
	Op   string `json:"op"` // equal | insert | delete
	Text string `json:"text"`
}

// Diff reports the fields where live differs from stored. Unset fields in
// stored are not compared: a snapshot that says nothing about a field
// cannot drift on it. For content fields holding values on both sides,
// Ops describes the edit that turns live into stored.
func Diff(stored, live Snapshot) []Change {
	var changes []Change
	for _, name := range FieldNames() {
		s, _ := stored.Field(name)
		if s.Kind() == KindUnset {
			continue
		}
		l, _ := live.Field(name)
		if s == l {
			continue
		}
		ch := Change{Field: name, Stored: s, Live: l}
		if (name == FieldHTML || name == FieldText) && s.Kind() == KindValue && l.Kind() == KindValue {
			ch.Ops = textOps(l.value, s.value)
		}
		changes = append(changes, ch)
	}
	return changes
}

func textOps(from, to string) []TextOp {
	dmp := diffpatch.New()
	diffs := dmp.DiffMain(from, to, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	ops := make([]TextOp, 0, len(diffs))
	for _, d := range diffs {
		var op string
		switch d.Type {
		case diffpatch.DiffInsert:
			op = "insert"
		case diffpatch.DiffDelete:
			op = "delete"
		default:
			op = "equal"
		}
		ops = append(ops, TextOp{Op: op, Text: d.Text})
	}
	return ops
}
