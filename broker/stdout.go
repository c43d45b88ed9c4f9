package broker

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/hazyhaar/domstate/idgen"
)

// Stdout writes each envelope as a JSON line to an io.Writer. Publish-only.
type Stdout struct {
	mu    sync.Mutex
	enc   *json.Encoder
	newID idgen.Generator
}

// NewStdout creates a Stdout broker. If w is nil, os.Stdout is used.
func NewStdout(w io.Writer) *Stdout {
	if w == nil {
		w = os.Stdout
	}
	return &Stdout{enc: json.NewEncoder(w), newID: idgen.Default}
}

func (s *Stdout) Publish(_ context.Context, msg Message) error {
	env := NewEnvelope(msg, s.newID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(env)
}

func (s *Stdout) Subscribe(Subscription) (func(), error) {
	return nil, ErrSubscribeUnsupported
}
