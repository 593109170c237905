package model

import (
	"fmt"
	"strings"
)

// FieldDescriptor is the serializable field definition the document
// model hands across the sandbox boundary: identity, initial state,
// display attributes and the trigger→scripts action map. Script
// bodies are opaque source strings, passed through unchanged.
type FieldDescriptor struct {
	ID        string              `json:"id" yaml:"id"`
	Name      string              `json:"name" yaml:"name"`
	Type      string              `json:"type" yaml:"type"`
	Value     any                 `json:"value,omitempty" yaml:"value,omitempty"`
	Rect      []float64           `json:"rect,omitempty" yaml:"rect,omitempty"`
	Alignment string              `json:"alignment,omitempty" yaml:"alignment,omitempty"`
	TextSize  float64             `json:"textSize,omitempty" yaml:"textSize,omitempty"`
	TextFont  string              `json:"textFont,omitempty" yaml:"textFont,omitempty"`
	TextColor []float64           `json:"textColor,omitempty" yaml:"textColor,omitempty"`
	FillColor []float64           `json:"fillColor,omitempty" yaml:"fillColor,omitempty"`
	CharLimit int                 `json:"charLimit,omitempty" yaml:"charLimit,omitempty"`
	Hidden    bool                `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	ReadOnly  bool                `json:"readOnly,omitempty" yaml:"readOnly,omitempty"`
	Required  bool                `json:"required,omitempty" yaml:"required,omitempty"`
	Options   []string            `json:"options,omitempty" yaml:"options,omitempty"`
	Actions   map[string][]string `json:"actions,omitempty" yaml:"actions,omitempty"`
}

// Field is one interactive form field as scripts see it. Several
// widget annotations may share a Name; all of them stay
// value-synchronized through the owning Doc.
type Field struct {
	id            string
	name          string
	typ           string
	value         any
	valueAsString string
	defaultValue  any
	rect          []float64
	alignment     string
	textSize      float64
	textFont      string
	textColor     []float64
	fillColor     []float64
	charLimit     int
	hidden        bool
	readOnly      bool
	required      bool
	display       int
	options       []string

	// actions maps canonical (space-stripped) trigger names to the
	// ordered script bodies attached to that trigger.
	actions map[string][]string

	doc *Doc
}

// NewField builds a runtime field from its descriptor. Trigger names
// are canonicalized by stripping embedded spaces: Acrobat historically
// accepts "Mouse Up"-style names that must match their no-space key.
func NewField(desc FieldDescriptor) *Field {
	f := &Field{
		id:           desc.ID,
		name:         desc.Name,
		typ:          desc.Type,
		value:        desc.Value,
		defaultValue: desc.Value,
		rect:         desc.Rect,
		alignment:    desc.Alignment,
		textSize:     desc.TextSize,
		textFont:     desc.TextFont,
		textColor:    desc.TextColor,
		fillColor:    desc.FillColor,
		charLimit:    desc.CharLimit,
		hidden:       desc.Hidden,
		readOnly:     desc.ReadOnly,
		required:     desc.Required,
		options:      desc.Options,
		actions:      make(map[string][]string, len(desc.Actions)),
	}
	f.valueAsString = stringify(desc.Value)
	for trigger, scripts := range desc.Actions {
		key := CanonicalTrigger(trigger)
		f.actions[key] = append(f.actions[key], scripts...)
	}
	return f
}

// CanonicalTrigger strips embedded spaces from a trigger name.
func CanonicalTrigger(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

// ID returns the stable per-instance field id.
func (f *Field) ID() string { return f.id }

// Name returns the logical field name, possibly shared by several
// widget instances.
func (f *Field) Name() string { return f.name }

// Value returns the current live value.
func (f *Field) Value() any { return f.value }

// ActionsFor returns the ordered script bodies for a canonical
// trigger name; nil when the field carries none.
func (f *Field) ActionsFor(trigger string) []string {
	return f.actions[trigger]
}

// HasActions reports whether any trigger carries scripts.
func (f *Field) HasActions() bool { return len(f.actions) > 0 }

// setValue mutates the live value without sibling synchronization or
// host updates; internal use only.
func (f *Field) setValue(v any) {
	f.value = v
	f.valueAsString = stringify(v)
}

// SetValueAsString overrides the displayed string, used when a Format
// action produces a new display value.
func (f *Field) SetValueAsString(s string) { f.valueAsString = s }

func (f *Field) ObjectID() string { return f.id }

func (f *Field) GetProp(name string) (any, bool) {
	switch name {
	case "value":
		return f.value, true
	case "valueAsString":
		return f.valueAsString, true
	case "defaultValue":
		return f.defaultValue, true
	case "name":
		return f.name, true
	case "type":
		return f.typ, true
	case "rect":
		return f.rect, true
	case "alignment":
		return f.alignment, true
	case "textSize":
		return f.textSize, true
	case "textFont":
		return f.textFont, true
	case "textColor":
		return f.textColor, true
	case "fillColor":
		return f.fillColor, true
	case "charLimit":
		return f.charLimit, true
	case "hidden":
		return f.hidden, true
	case "readonly":
		return f.readOnly, true
	case "required":
		return f.required, true
	case "display":
		return f.display, true
	case "numItems":
		return len(f.options), true
	}
	return nil, false
}

func (f *Field) SetProp(name string, value any) (bool, error) {
	switch name {
	case "value":
		f.setValue(value)
		if f.doc != nil {
			f.doc.syncSiblings(f, value)
		}
		return true, nil
	case "valueAsString":
		f.valueAsString = stringify(value)
		return true, nil
	case "defaultValue":
		f.defaultValue = value
		return true, nil
	case "rect":
		if r, ok := toFloatSlice(value); ok {
			f.rect = r
		}
		return true, nil
	case "alignment":
		f.alignment = stringify(value)
		return true, nil
	case "textSize":
		f.textSize = toFloat(value)
		return true, nil
	case "textFont":
		f.textFont = stringify(value)
		return true, nil
	case "textColor":
		if c, ok := toFloatSlice(value); ok {
			f.textColor = c
		}
		return true, nil
	case "fillColor":
		if c, ok := toFloatSlice(value); ok {
			f.fillColor = c
		}
		return true, nil
	case "charLimit":
		f.charLimit = int(toFloat(value))
		return true, nil
	case "hidden":
		f.hidden = toBool(value)
		return true, nil
	case "readonly":
		f.readOnly = toBool(value)
		return true, nil
	case "required":
		f.required = toBool(value)
		return true, nil
	case "display":
		f.display = int(toFloat(value))
		return true, nil
	case "name", "type", "numItems":
		return true, &ErrReadOnly{Property: name}
	}
	return false, nil
}

func (f *Field) Methods() []string {
	return []string{
		"setFocus", "getArray", "getItemAt",
		"buttonGetCaption", "buttonSetCaption", "signatureInfo",
	}
}

func (f *Field) CallMethod(name string, args []any) (any, bool, error) {
	switch name {
	case "setFocus":
		if f.doc != nil {
			f.doc.emit(f.id, "focus", true)
		}
		return nil, true, nil
	case "getArray":
		if f.doc == nil {
			return []any{}, true, nil
		}
		return f.doc.fieldArray(f.name), true, nil
	case "getItemAt":
		idx := 0
		if len(args) > 0 {
			idx = int(toFloat(args[0]))
		}
		if idx < 0 || idx >= len(f.options) {
			return nil, true, fmt.Errorf("getItemAt: index %d out of range", idx)
		}
		return f.options[idx], true, nil
	case "buttonGetCaption", "buttonSetCaption", "signatureInfo":
		return nil, true, &NotSupportedError{API: "field." + name}
	}
	return nil, false, nil
}
