package model

// Wrapped is the capability proxy in front of one ScriptObject. It is
// a thin, stateless view apart from the extras bag: it owns nothing
// of the underlying object and only intercepts property access.
//
// Access policy:
//   - Get returns the public property if present, else reports the
//     name as a bound public method, else the extras bag, else
//     undefined. Unknown names never throw: scripts routinely probe
//     for optional properties.
//   - Set mutates the object only for public properties, and emits a
//     host Update for every successful public write on a
//     host-visible object. All other assignments are parked in the
//     extras bag.
//   - Has reports true for every name. This keeps "is this defined"
//     checks inside the script runtime from falling through to any
//     outer scope, so restricted globals stay restricted.
type Wrapped struct {
	obj    ScriptObject
	emit   EmitFunc
	extras map[string]any
}

// NewWrapped wraps obj with the capability access policy. emit may be
// nil for objects that are never host-visible.
func NewWrapped(obj ScriptObject, emit EmitFunc) *Wrapped {
	return &Wrapped{obj: obj, emit: emit}
}

// Object returns the wrapped object for host-side (non-script) use.
func (w *Wrapped) Object() ScriptObject { return w.obj }

// Get resolves a property read. The second result is false only when
// the name is neither public, a method, nor a parked extra; callers
// surface that as undefined.
func (w *Wrapped) Get(name string) (any, bool) {
	if v, ok := w.obj.GetProp(name); ok {
		return v, true
	}
	if hasMethod(w.obj, name) {
		return BoundMethod{Object: w.obj, Name: name}, true
	}
	if v, ok := w.extras[name]; ok {
		return v, true
	}
	return nil, false
}

// Set applies the script-side assignment policy.
func (w *Wrapped) Set(name string, value any) error {
	public, err := w.obj.SetProp(name, value)
	if !public {
		if w.extras == nil {
			w.extras = make(map[string]any)
		}
		w.extras[name] = value
		return nil
	}
	if err != nil {
		return err
	}
	w.emitUpdate(name, value)
	return nil
}

// SetPublic is the host-side commit path used by the event
// dispatcher. It writes a public property and emits the same Update a
// script write would, reporting whether the property was public.
func (w *Wrapped) SetPublic(name string, value any) bool {
	public, err := w.obj.SetProp(name, value)
	if !public || err != nil {
		return false
	}
	w.emitUpdate(name, value)
	return true
}

// Has deliberately reports true for any name.
func (w *Wrapped) Has(string) bool { return true }

// Delete removes a parked extra. Public properties are not deletable.
func (w *Wrapped) Delete(name string) {
	delete(w.extras, name)
}

// Call invokes a public method by name.
func (w *Wrapped) Call(name string, args []any) (any, bool, error) {
	return w.obj.CallMethod(name, args)
}

// Keys lists only the extras bag: the public surface is fixed per
// kind and enumerating it is never required by form scripts.
func (w *Wrapped) Keys() []string {
	keys := make([]string, 0, len(w.extras))
	for k := range w.extras {
		keys = append(keys, k)
	}
	return keys
}

func (w *Wrapped) emitUpdate(name string, value any) {
	if w.emit == nil || w.obj.ObjectID() == "" {
		return
	}
	w.emit(w.obj.ObjectID(), name, value)
}

// BoundMethod marks a method lookup result so the script binding
// layer can materialize a callable tied to the owning object.
type BoundMethod struct {
	Object ScriptObject
	Name   string
}
