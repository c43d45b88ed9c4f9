package revive

import (
	"context"
	"fmt"

	"github.com/hazyhaar/domstate/state"
)

// DriftReport lists how one element has moved away from its stored
// snapshot.
type DriftReport struct {
	ID      string         `json:"id"`
	Changes []state.Change `json:"changes"`
}

// Drift captures the live state of every element under label and compares
// it with the stored snapshots. Elements without changes are omitted.
func (c *Controller) Drift(ctx context.Context, label string) ([]DriftReport, error) {
	e, ok := c.Lookup(label)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLabelNotFound, label)
	}
	reports := []DriftReport{}
	for _, stored := range e.snaps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		live := c.codec.Capture(ctx, c.doc, stored.ID)
		if changes := state.Diff(stored, live); len(changes) > 0 {
			reports = append(reports, DriftReport{ID: stored.ID, Changes: changes})
		}
	}
	return reports, nil
}
