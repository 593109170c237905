// Package model implements the object graph exposed to form scripts:
// Field, Doc, App, Event, Util and Console value objects, and the
// capability proxy that decides what a script may read or write on
// each of them.
//
// Scripts never touch these objects directly. Every object is reached
// through a Wrapped proxy enforcing a per-kind allow-list of public
// properties and callable methods; everything else an assignment
// touches lands in a per-object extras bag so that ad hoc
// script-added properties round-trip without corrupting the model.
package model

import "fmt"

// EmitFunc delivers a host-visible property update. The sandbox wires
// it to the transport's outbound Update message.
type EmitFunc func(objectID, property string, value any)

// ScriptObject is the explicit per-kind capability surface. GetProp
// and SetProp cover only public properties; private state is not
// reachable through this interface at all.
type ScriptObject interface {
	// ObjectID identifies the object in host-visible updates. An
	// empty id marks an object whose writes the host never sees
	// (Event, Util, Console).
	ObjectID() string

	// GetProp returns a public property value, reporting false for
	// names outside the allow-list.
	GetProp(name string) (any, bool)

	// SetProp assigns a public property. The first result reports
	// whether the name is public at all; a public but rejected
	// write (read-only property, unsupported surface) returns an
	// error as well.
	SetProp(name string, value any) (bool, error)

	// CallMethod invokes a script-callable method. The bool result
	// reports whether the name names a method on this object.
	CallMethod(name string, args []any) (any, bool, error)

	// Methods lists the script-callable method names.
	Methods() []string
}

// NotSupportedError deterministically signals an Acrobat API surface
// this engine does not provide (pop-up menus, FDF transfer, monitor
// enumeration, ...). It is raised to the calling script so that
// try/catch feature detection behaves as it does in Acrobat.
type NotSupportedError struct {
	API string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported", e.API)
}

// ErrReadOnly rejects writes to read-only public properties.
type ErrReadOnly struct {
	Property string
}

func (e *ErrReadOnly) Error() string {
	return fmt.Sprintf("property %s is read-only", e.Property)
}

func hasMethod(obj ScriptObject, name string) bool {
	for _, m := range obj.Methods() {
		if m == name {
			return true
		}
	}
	return false
}
