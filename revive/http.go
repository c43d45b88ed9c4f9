package revive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/domstate/kit"
	"github.com/hazyhaar/domstate/shield"
)

// Handler returns the JSON API over c:
//
//	GET    /health
//	GET    /labels
//	DELETE /labels
//	GET    /labels/{label}
//	PUT    /labels/{label}      body: entry (snapshot object or array)
//	POST   /capture             body: {"label","ids","batch"}
//	POST   /restore/{label}
//	POST   /restore-all/{label}
//	GET    /drift/{label}
//	POST   /emit                body: {"channel","topic","data"}
//
// maxBody caps JSON request bodies.
func Handler(c *Controller, maxBody int64) http.Handler {
	ep := newEndpoints(c)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, mw := range shield.DefaultAPIStack(maxBody) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/labels", serve(ep.labels, noBody))
	r.Delete("/labels", serve(ep.clear, noBody))
	r.Get("/labels/{label}", serve(ep.lookup, labelParam))
	r.Put("/labels/{label}", serve(ep.store, func(r *http.Request) (any, error) {
		var e Entry
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			return nil, err
		}
		return &storeReq{Label: chi.URLParam(r, "label"), Entry: e}, nil
	}))
	r.Post("/capture", serve(ep.capture, decodeBody[captureReq]))
	r.Post("/restore/{label}", serve(ep.restore, labelParam))
	r.Post("/restore-all/{label}", serve(ep.restoreAll, labelParam))
	r.Get("/drift/{label}", serve(ep.drift, labelParam))
	r.Post("/emit", serve(ep.emit, decodeBody[emitReq]))

	return r
}

func serve(e kit.Endpoint, decode func(*http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := decode(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("decode: %w", err))
			return
		}
		resp, err := e(r.Context(), req)
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, statusOfResult(resp), resp)
	}
}

func noBody(*http.Request) (any, error) { return nil, nil }

func labelParam(r *http.Request) (any, error) {
	return &labelReq{Label: chi.URLParam(r, "label")}, nil
}

func decodeBody[T any](r *http.Request) (any, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return nil, err
	}
	return &v, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, errInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrLabelNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrShapeMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// statusOfResult maps restore results to a status: unresolved labels and
// shape mismatches keep their error status, a skipped single restore is
// 422, everything else is 200.
func statusOfResult(resp any) int {
	switch v := resp.(type) {
	case Outcome:
		if v.Err == nil {
			return http.StatusOK
		}
		if s := statusOf(v.Err); s != http.StatusInternalServerError {
			return s
		}
		return http.StatusUnprocessableEntity
	case BatchResult:
		if v.Err != nil {
			return statusOf(v.Err)
		}
	}
	return http.StatusOK
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
