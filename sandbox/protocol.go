package sandbox

import (
	"fmt"

	"pdfscript/model"
)

// Message kinds crossing the sandbox boundary.
const (
	KindCreate = "create"
	KindEvent  = "event"
	KindUpdate = "update"
	KindError  = "error"
)

// Message is one protocol record. All implementations are plain
// serializable structs; nothing crossing the boundary carries live
// references.
type Message interface {
	MessageKind() string
}

// CreateMessage loads a document batch into the sandbox, once per
// instance.
type CreateMessage struct {
	Fields           []model.FieldDescriptor `json:"fields"`
	CalculationOrder []string                `json:"calculationOrder,omitempty"`
	Metadata         model.DocMetadata       `json:"metadata"`
	DispatchKey      string                  `json:"dispatchKey"`
}

func (CreateMessage) MessageKind() string { return KindCreate }

// EventMessage drives one event dispatch.
type EventMessage struct {
	FieldID string             `json:"fieldId"`
	Trigger string             `json:"trigger"`
	Payload model.EventPayload `json:"payload"`
}

func (EventMessage) MessageKind() string { return KindEvent }

// UpdateMessage reflects a successful public property write back to
// the host: within one dispatch, consumers may rely on last-write-wins
// per object id.
type UpdateMessage struct {
	ObjectID string `json:"objectId"`
	Property string `json:"property"`
	Value    any    `json:"value"`
}

func (UpdateMessage) MessageKind() string { return KindUpdate }

// ErrorMessage reports a failed action with enough context for
// diagnostics. It never carries script source that was not already
// host-visible.
type ErrorMessage struct {
	FieldID string `json:"fieldId"`
	Trigger string `json:"trigger"`
	Message string `json:"message"`
}

func (ErrorMessage) MessageKind() string { return KindError }

// ProtocolError marks a malformed or out-of-sequence boundary
// operation. It is never fatal to the sandbox instance.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }

// ScriptError wraps an exception raised by document-supplied action
// code. It is captured at single-action granularity.
type ScriptError struct {
	FieldID string
	Trigger string
	Err     error
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script error in %s/%s: %v", e.FieldID, e.Trigger, e.Err)
}

func (e *ScriptError) Unwrap() error { return e.Err }
