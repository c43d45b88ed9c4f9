package revive

import (
	"encoding/json"
	"errors"
)

var (
	// ErrLabelNotFound is reported when no entry is stored under a label.
	ErrLabelNotFound = errors.New("revive: label not found")
	// ErrShapeMismatch is reported when Restore meets a batch entry or
	// RestoreAll meets a single one.
	ErrShapeMismatch = errors.New("revive: entry shape mismatch")
)

// Status is the result of applying one snapshot.
type Status uint8

const (
	Applied Status = iota
	Skipped
)

func (s Status) String() string {
	if s == Applied {
		return "applied"
	}
	return "skipped"
}

func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Outcome reports what happened to one snapshot during a restore.
// Err carries the reason when Status is Skipped.
type Outcome struct {
	ID     string
	Status Status
	Err    error
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	v := struct {
		ID     string `json:"id"`
		Status Status `json:"status"`
		Reason string `json:"reason,omitempty"`
	}{ID: o.ID, Status: o.Status}
	if o.Err != nil {
		v.Reason = o.Err.Error()
	}
	return json.Marshal(v)
}

// BatchResult reports a RestoreAll run. Err is set, with no items, when the
// label could not be restored as a batch at all.
type BatchResult struct {
	Label string
	Items []Outcome
	Err   error
}

// Applied counts applied items.
func (r BatchResult) Applied() int { return r.count(Applied) }

// Skipped counts skipped items.
func (r BatchResult) Skipped() int { return r.count(Skipped) }

// OK reports whether the label resolved and every item applied.
func (r BatchResult) OK() bool { return r.Err == nil && r.Skipped() == 0 }

// SkippedIDs lists the ids of skipped items in order.
func (r BatchResult) SkippedIDs() []string {
	var ids []string
	for _, o := range r.Items {
		if o.Status == Skipped {
			ids = append(ids, o.ID)
		}
	}
	return ids
}

func (r BatchResult) count(s Status) int {
	n := 0
	for _, o := range r.Items {
		if o.Status == s {
			n++
		}
	}
	return n
}

func (r BatchResult) MarshalJSON() ([]byte, error) {
	v := struct {
		Label   string    `json:"label"`
		Items   []Outcome `json:"items"`
		Applied int       `json:"applied"`
		Skipped int       `json:"skipped"`
		Error   string    `json:"error,omitempty"`
	}{Label: r.Label, Items: r.Items, Applied: r.Applied(), Skipped: r.Skipped()}
	if v.Items == nil {
		v.Items = []Outcome{}
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return json.Marshal(v)
}
