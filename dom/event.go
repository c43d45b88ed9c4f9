package dom

// Listener receives dispatched events.
type Listener func(*Event)

// Event is a DOM event delivered to a Listener.
type Event struct {
	Type     string `json:"type"`
	TargetID string `json:"target_id"`
	// Detail carries implementation-specific payload (e.g. the value of an
	// input at dispatch time). May be empty.
	Detail string `json:"detail,omitempty"`

	prevented bool
}

// PreventDefault marks the event so the host skips its default action.
func (e *Event) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether PreventDefault was called.
func (e *Event) DefaultPrevented() bool { return e.prevented }
