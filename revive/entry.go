package revive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hazyhaar/domstate/state"
)

// Entry is what a label holds: a single snapshot or an ordered batch.
// The zero Entry is an empty batch.
type Entry struct {
	batch bool
	snaps []state.Snapshot
}

// One returns a single-snapshot entry, restored with Restore.
func One(s state.Snapshot) Entry {
	return Entry{snaps: []state.Snapshot{s}}
}

// Many returns a batch entry, restored in order with RestoreAll.
func Many(snaps ...state.Snapshot) Entry {
	return Entry{batch: true, snaps: append([]state.Snapshot(nil), snaps...)}
}

// IsBatch reports whether the entry was built with Many.
func (e Entry) IsBatch() bool { return e.batch || len(e.snaps) == 0 }

// Single returns the snapshot of a One entry.
func (e Entry) Single() (state.Snapshot, bool) {
	if e.IsBatch() {
		return state.Snapshot{}, false
	}
	return e.snaps[0], true
}

// Snapshots returns a copy of the entry's snapshots.
func (e Entry) Snapshots() []state.Snapshot {
	return append([]state.Snapshot(nil), e.snaps...)
}

// Len is the number of snapshots in the entry.
func (e Entry) Len() int { return len(e.snaps) }

// MarshalJSON encodes a One entry as a snapshot object and a Many entry as
// an array of snapshot objects.
func (e Entry) MarshalJSON() ([]byte, error) {
	if s, ok := e.Single(); ok {
		return json.Marshal(s)
	}
	if e.snaps == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.snaps)
}

// UnmarshalJSON accepts the forms produced by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("revive: empty entry")
	}
	switch data[0] {
	case '{':
		var s state.Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = One(s)
	case '[':
		var snaps []state.Snapshot
		if err := json.Unmarshal(data, &snaps); err != nil {
			return err
		}
		*e = Many(snaps...)
	default:
		return fmt.Errorf("revive: entry must be an object or an array")
	}
	return nil
}
