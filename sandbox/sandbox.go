// Package sandbox builds a self-contained scripting program from a
// document's field graph and mediates every later interaction with it
// through a narrow message protocol.
//
// A Bundle is the declarative program description: field descriptors
// with their opaque action sources, the calculation order and the
// document metadata. A Transport loads the bundle into an isolated
// execution context and exchanges plain serializable messages with
// it. Two realizations are provided: GojaTransport embeds an
// interpreter reached only through its generated entry point, and
// ChannelTransport crosses an asynchronous boundary with FIFO
// serialized envelopes, shaped like an out-of-process channel.
package sandbox

import "context"

// Transport is the sandbox boundary. Implementations guarantee that
// Create completes before any event is accepted, that operations never
// interleave, and that Destroy synchronously stops all outbound
// message delivery and invalidates sandbox-owned timers.
type Transport interface {
	// Create loads the bundle, instantiates the capability-wrapped
	// object graph and registers the fields. It must be called
	// exactly once, before any SendEvent.
	Create(ctx context.Context, bundle *Bundle) error

	// SendEvent drives one event dispatch to completion, including
	// the full Validate → Calculate → Format fan-out.
	SendEvent(ctx context.Context, msg EventMessage) error

	// OnMessage registers the host callback for outbound Update and
	// Error messages. Messages from a single dispatch arrive in the
	// order the dispatch algorithm produced its side effects.
	OnMessage(fn func(Message))

	// Destroy tears the instance down. No Update or Error message
	// is delivered after Destroy returns.
	Destroy() error
}
