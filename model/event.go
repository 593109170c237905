package model

// EventPayload is the serializable event data the host sends with an
// Event message.
type EventPayload struct {
	Value      any    `json:"value,omitempty" yaml:"value,omitempty"`
	Change     string `json:"change,omitempty" yaml:"change,omitempty"`
	ChangeEx   any    `json:"changeEx,omitempty" yaml:"changeEx,omitempty"`
	SelStart   int    `json:"selStart,omitempty" yaml:"selStart,omitempty"`
	SelEnd     int    `json:"selEnd,omitempty" yaml:"selEnd,omitempty"`
	WillCommit bool   `json:"willCommit,omitempty" yaml:"willCommit,omitempty"`
	Shift      bool   `json:"shift,omitempty" yaml:"shift,omitempty"`
	Modifier   bool   `json:"modifier,omitempty" yaml:"modifier,omitempty"`
}

// Event is the ephemeral per-dispatch value object. Exactly one Event
// is live per dispatch chain: recalculation mutates this same object
// rather than allocating new ones, matching Acrobat's event-global
// semantics.
type Event struct {
	Name       string
	Type       string
	Value      any
	Change     string
	ChangeEx   any
	SelStart   int
	SelEnd     int
	WillCommit bool
	Shift      bool
	Modifier   bool

	// RC is the return code: true accepts, false rejects/cancels
	// the current step. It is reset to true before every action
	// step.
	RC bool

	// Source and Target are capability-wrapped field references.
	Source *Wrapped
	Target *Wrapped
}

// NewEvent builds the shared event for one dispatch chain.
func NewEvent(name string, p EventPayload) *Event {
	return &Event{
		Name:       name,
		Type:       "Field",
		Value:      p.Value,
		Change:     p.Change,
		ChangeEx:   p.ChangeEx,
		SelStart:   p.SelStart,
		SelEnd:     p.SelEnd,
		WillCommit: p.WillCommit,
		Shift:      p.Shift,
		Modifier:   p.Modifier,
		RC:         true,
	}
}

func (e *Event) ObjectID() string { return "" }

func (e *Event) GetProp(name string) (any, bool) {
	switch name {
	case "name":
		return e.Name, true
	case "type":
		return e.Type, true
	case "value":
		return e.Value, true
	case "change":
		return e.Change, true
	case "changeEx":
		return e.ChangeEx, true
	case "selStart":
		return e.SelStart, true
	case "selEnd":
		return e.SelEnd, true
	case "willCommit":
		return e.WillCommit, true
	case "shift":
		return e.Shift, true
	case "modifier":
		return e.Modifier, true
	case "rc":
		return e.RC, true
	case "source":
		if e.Source == nil {
			return nil, true
		}
		return e.Source, true
	case "target":
		if e.Target == nil {
			return nil, true
		}
		return e.Target, true
	}
	return nil, false
}

func (e *Event) SetProp(name string, value any) (bool, error) {
	switch name {
	case "value":
		e.Value = value
	case "change":
		e.Change = stringify(value)
	case "changeEx":
		e.ChangeEx = value
	case "selStart":
		e.SelStart = int(toFloat(value))
	case "selEnd":
		e.SelEnd = int(toFloat(value))
	case "rc":
		e.RC = toBool(value)
	case "name", "type", "willCommit", "shift", "modifier", "source", "target":
		return true, &ErrReadOnly{Property: name}
	default:
		return false, nil
	}
	return true, nil
}

func (e *Event) Methods() []string { return nil }

func (e *Event) CallMethod(string, []any) (any, bool, error) { return nil, false, nil }
