package revive

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/domstate/kit"
)

// errInvalid marks request validation failures.
var errInvalid = errors.New("revive: invalid request")

type captureReq struct {
	Label string   `json:"label"`
	IDs   []string `json:"ids"`
	Batch bool     `json:"batch"`
}

type labelReq struct {
	Label string `json:"label"`
}

func (r *captureReq) label() string { return r.Label }
func (r *labelReq) label() string { return r.Label }
func (r *storeReq) label() string { return r.Label }

type storeReq struct {
	Label string `json:"label"`
	Entry Entry  `json:"entry"`
}

type emitReq struct {
	Channel string `json:"channel"`
	Topic   string `json:"topic"`
	Data    any    `json:"data"`
}

type labelEntry struct {
	Label string `json:"label"`
	Entry Entry  `json:"entry"`
}

type labelsResp struct {
	Labels []string `json:"labels"`
}

type driftResp struct {
	Label   string        `json:"label"`
	Drifted []DriftReport `json:"drifted"`
}

// endpoints are the transport-agnostic operations shared by the HTTP and
// MCP surfaces.
type endpoints struct {
	capture, store, lookup, labels, clear kit.Endpoint
	restore, restoreAll, drift, emit      kit.Endpoint
}

func newEndpoints(c *Controller) endpoints {
	wrap := func(op string, e kit.Endpoint) kit.Endpoint {
		return kit.Chain(withLabel, kit.Logging(c.logger, op))(e)
	}
	return endpoints{
		capture: wrap("capture", func(ctx context.Context, req any) (any, error) {
			r := req.(*captureReq)
			if r.Label == "" || len(r.IDs) == 0 {
				return nil, fmt.Errorf("%w: label and ids are required", errInvalid)
			}
			e, err := c.Record(ctx, r.Label, r.Batch, r.IDs...)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errInvalid, err)
			}
			return labelEntry{Label: r.Label, Entry: e}, nil
		}),
		store: wrap("store", func(_ context.Context, req any) (any, error) {
			r := req.(*storeReq)
			if r.Label == "" {
				return nil, fmt.Errorf("%w: label is required", errInvalid)
			}
			c.Store(r.Label, r.Entry)
			return labelEntry{Label: r.Label, Entry: r.Entry}, nil
		}),
		lookup: wrap("lookup", func(_ context.Context, req any) (any, error) {
			r := req.(*labelReq)
			e, ok := c.Lookup(r.Label)
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrLabelNotFound, r.Label)
			}
			return labelEntry{Label: r.Label, Entry: e}, nil
		}),
		labels: wrap("labels", func(context.Context, any) (any, error) {
			return labelsResp{Labels: c.Labels()}, nil
		}),
		clear: wrap("clear", func(context.Context, any) (any, error) {
			c.Clear()
			return labelsResp{Labels: []string{}}, nil
		}),
		restore: wrap("restore", func(ctx context.Context, req any) (any, error) {
			return c.Restore(ctx, req.(*labelReq).Label), nil
		}),
		restoreAll: wrap("restore_all", func(ctx context.Context, req any) (any, error) {
			return c.RestoreAll(ctx, req.(*labelReq).Label), nil
		}),
		drift: wrap("drift", func(ctx context.Context, req any) (any, error) {
			r := req.(*labelReq)
			reports, err := c.Drift(ctx, r.Label)
			if err != nil {
				return nil, err
			}
			return driftResp{Label: r.Label, Drifted: reports}, nil
		}),
		emit: wrap("emit", func(ctx context.Context, req any) (any, error) {
			r := req.(*emitReq)
			if r.Topic == "" {
				return nil, fmt.Errorf("%w: topic is required", errInvalid)
			}
			if err := c.Emit(ctx, r.Channel, r.Topic, r.Data); err != nil {
				return nil, err
			}
			return map[string]string{"status": "published"}, nil
		}),
	}
}

// withLabel puts the request's label in the context so it shows up in the
// endpoint log line.
func withLabel(next kit.Endpoint) kit.Endpoint {
	return func(ctx context.Context, req any) (any, error) {
		if r, ok := req.(interface{ label() string }); ok && r.label() != "" {
			ctx = kit.WithLabel(ctx, r.label())
		}
		return next(ctx, req)
	}
}
