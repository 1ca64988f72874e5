package render

import "github.com/goliatone/go-postgen/pkg/schema"

// Kind is the control family a descriptor asks the host to draw.
type Kind string

const (
	KindText        Kind = "text"
	KindTextarea    Kind = "textarea"
	KindNumber      Kind = "number"
	KindToggle      Kind = "toggle"
	KindSelect      Kind = "select"
	KindMultiselect Kind = "multiselect"
	KindPassword    Kind = "password"
	KindDate        Kind = "date"
	KindTime        Kind = "time"
	KindDatetime    Kind = "datetime"
	KindListTable   Kind = "list-table"
	KindButton      Kind = "button"
	KindComposite   Kind = "composite"
	// KindPlaceholder is a disabled stand-in, e.g. a select with no options.
	KindPlaceholder Kind = "placeholder"
	// KindUnsupported marks a field type the renderer does not know.
	KindUnsupported Kind = "unsupported"
)

// ChangeFunc receives (fieldName, value) edit events.
type ChangeFunc func(name string, value any)

// ActionFunc receives button presses. values is a copy of every current
// value at the time of the press.
type ActionFunc func(action string, field schema.Field, values map[string]any)

// Context carries per-pass inputs that are not part of the field itself.
type Context struct {
	// PlatformID is substituted into endpoint templates.
	PlatformID string
	// Values holds every current value, used for visibleWhen and buttons.
	Values map[string]any
	// Options holds remotely loaded options keyed by field name. Composite
	// sub-fields are keyed "<field>.<subkey>".
	Options map[string][]schema.Option
	// OnAction receives button presses.
	OnAction ActionFunc
}

// ControlDescriptor describes one control for the host to draw. Descriptors
// hold no state; Input and Press close over the render inputs.
type ControlDescriptor struct {
	Name        string           `json:"name"`
	Type        schema.FieldType `json:"type"`
	Kind        Kind             `json:"kind"`
	Widget      string           `json:"widget,omitempty"`
	Label       string           `json:"label,omitempty"`
	Description string           `json:"description,omitempty"`
	Placeholder string           `json:"placeholder,omitempty"`
	Value       any              `json:"value,omitempty"`
	Options     []schema.Option  `json:"options,omitempty"`
	Required    bool             `json:"required,omitempty"`
	Disabled    bool             `json:"disabled,omitempty"`
	Hidden      bool             `json:"hidden,omitempty"`
	// Error is the validation message shown next to the control.
	Error string `json:"error,omitempty"`
	// Warning is a configuration problem surfaced inline.
	Warning  string              `json:"warning,omitempty"`
	Width    string              `json:"width,omitempty"`
	Order    int                 `json:"order,omitempty"`
	Action   string              `json:"action,omitempty"`
	Endpoint string              `json:"endpoint,omitempty"`
	Children []ControlDescriptor `json:"children,omitempty"`

	// Input parses raw user input for the field type and forwards the result
	// to the change callback. Nil for controls that cannot be edited.
	Input func(raw any) `json:"-"`
	// Press forwards a button press to the host. Nil for non-buttons.
	Press func() `json:"-"`
}

// Child returns the sub-control with the given name.
func (d ControlDescriptor) Child(name string) (ControlDescriptor, bool) {
	for _, child := range d.Children {
		if child.Name == name {
			return child, true
		}
	}
	return ControlDescriptor{}, false
}
