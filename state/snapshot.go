// CLAUDE:SUMMARY Defines the Snapshot record: element id plus tri-state content and attribute fields.
// Package state is the element state codec: it captures the observable
// presentational state of a DOM element into a Snapshot and applies a
// Snapshot back onto a live element.
package state

import (
	"encoding/json"
	"errors"
)

// ErrMissingID is returned when applying a snapshot without an element id.
var ErrMissingID = errors.New("state: snapshot has no id")

// Attributes is the enumerated attribute set, in apply order.
var Attributes = []string{
	"class", "src", "href", "width", "height", "alt", "title",
	"disabled", "checked", "selected",
}

// Content field names. CSS is the raw inline style attribute.
const (
	FieldHTML = "html"
	FieldText = "text"
	FieldCSS  = "css"
)

// Snapshot is the observable state of one element at capture time.
// It is a plain value: copying a Snapshot copies all of its state.
type Snapshot struct {
	ID string `json:"id"`

	HTML Field `json:"html,omitzero"`
	Text Field `json:"text,omitzero"`
	CSS  Field `json:"css,omitzero"`

	Class    Field `json:"class,omitzero"`
	Src      Field `json:"src,omitzero"`
	Href     Field `json:"href,omitzero"`
	Width    Field `json:"width,omitzero"`
	Height   Field `json:"height,omitzero"`
	Alt      Field `json:"alt,omitzero"`
	Title    Field `json:"title,omitzero"`
	Checked  Field `json:"checked,omitzero"`
	Selected Field `json:"selected,omitzero"`
	Disabled Field `json:"disabled,omitzero"`
}

// FieldNames lists every non-id field: content fields then Attributes.
func FieldNames() []string {
	return append([]string{FieldHTML, FieldText, FieldCSS}, Attributes...)
}

// Field returns the named field. ok is false for unknown names.
func (s Snapshot) Field(name string) (f Field, ok bool) {
	p := s.ptr(name)
	if p == nil {
		return Field{}, false
	}
	return *p, true
}

// With returns a copy of s with the named field replaced. Unknown names
// return s unchanged.
func (s Snapshot) With(name string, f Field) Snapshot {
	if p := s.ptr(name); p != nil {
		*p = f
	}
	return s
}

func (s *Snapshot) ptr(name string) *Field {
	switch name {
	case FieldHTML:
		return &s.HTML
	case FieldText:
		return &s.Text
	case FieldCSS:
		return &s.CSS
	case "class":
		return &s.Class
	case "src":
		return &s.Src
	case "href":
		return &s.Href
	case "width":
		return &s.Width
	case "height":
		return &s.Height
	case "alt":
		return &s.Alt
	case "title":
		return &s.Title
	case "checked":
		return &s.Checked
	case "selected":
		return &s.Selected
	case "disabled":
		return &s.Disabled
	}
	return nil
}

// Marshal serialises a Snapshot to JSON.
func Marshal(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserialises a Snapshot from JSON.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
