package sandbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"pdfscript/observability"
)

// envelope is the serialized form every record takes when crossing
// the channel boundary. Only plain data crosses: the round-trip
// through JSON is what enforces it.
type envelope struct {
	Kind string          `json:"kind"`
	Body json.RawMessage `json:"body"`
}

func sealEnvelope(msg Message) (envelope, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return envelope{}, fmt.Errorf("sealing %s message: %w", msg.MessageKind(), err)
	}
	return envelope{Kind: msg.MessageKind(), Body: body}, nil
}

func openEnvelope(env envelope) (Message, error) {
	switch env.Kind {
	case KindCreate:
		var msg CreateMessage
		if err := json.Unmarshal(env.Body, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case KindEvent:
		var msg EventMessage
		if err := json.Unmarshal(env.Body, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case KindUpdate:
		var msg UpdateMessage
		if err := json.Unmarshal(env.Body, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	case KindError:
		var msg ErrorMessage
		if err := json.Unmarshal(env.Body, &msg); err != nil {
			return nil, err
		}
		return msg, nil
	}
	return nil, &ProtocolError{Reason: "unknown message kind " + env.Kind}
}

type channelOp struct {
	env   envelope
	reply chan error
}

// ChannelTransport realizes the sandbox boundary across an
// asynchronous channel, the shape an out-of-process or cross-origin
// deployment takes. A single worker goroutine owns the inner
// interpreter; inbound operations are serialized envelopes appended
// to a FIFO, each awaiting the previous operation's completion, so no
// two operations ever interleave.
type ChannelTransport struct {
	inner *GojaTransport
	ops   chan channelOp
	quit  chan struct{}
	wg    sync.WaitGroup

	destroyed atomic.Bool

	mu    sync.Mutex
	onMsg func(Message)

	log observability.Logger
}

// ChannelOption adjusts channel transport construction.
type ChannelOption func(*ChannelTransport)

// WithChannelLogger attaches a structured logger to the transport and
// its inner interpreter.
func WithChannelLogger(log observability.Logger) ChannelOption {
	return func(t *ChannelTransport) { t.log = log }
}

// NewChannelTransport starts the worker goroutine that owns the
// sandboxed interpreter.
func NewChannelTransport(opts ...ChannelOption) *ChannelTransport {
	t := &ChannelTransport{
		ops:  make(chan channelOp, 16),
		quit: make(chan struct{}),
		log:  observability.NopLogger{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.inner = NewGojaTransport(WithGojaLogger(t.log))
	t.inner.OnMessage(t.forward)

	t.wg.Add(1)
	go t.run()
	return t
}

func (t *ChannelTransport) run() {
	defer t.wg.Done()
	for {
		select {
		case <-t.quit:
			return
		case op := <-t.ops:
			op.reply <- t.handle(op.env)
		}
	}
}

func (t *ChannelTransport) handle(env envelope) error {
	msg, err := openEnvelope(env)
	if err != nil {
		t.log.Warn("dropping malformed envelope", observability.Error("err", err))
		return err
	}
	switch m := msg.(type) {
	case CreateMessage:
		return t.inner.Create(context.Background(), bundleFromMessage(m))
	case EventMessage:
		return t.inner.SendEvent(context.Background(), m)
	}
	return &ProtocolError{Reason: "unexpected inbound kind " + env.Kind}
}

// forward carries a sandbox-side message out through the boundary,
// round-tripping it through its serialized form. Messages from a
// destroyed instance are dropped, never delivered late.
func (t *ChannelTransport) forward(msg Message) {
	env, err := sealEnvelope(msg)
	if err != nil {
		t.log.Warn("unserializable outbound message", observability.Error("err", err))
		return
	}
	out, err := openEnvelope(env)
	if err != nil {
		t.log.Warn("undecodable outbound message", observability.Error("err", err))
		return
	}
	if t.destroyed.Load() {
		return
	}
	t.mu.Lock()
	fn := t.onMsg
	t.mu.Unlock()
	if fn != nil {
		fn(out)
	}
}

// OnMessage registers the host-side callback.
func (t *ChannelTransport) OnMessage(fn func(Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMsg = fn
}

// Create serializes the bundle and appends it to the FIFO.
func (t *ChannelTransport) Create(ctx context.Context, bundle *Bundle) error {
	return t.submit(ctx, bundle.CreateMessage())
}

// SendEvent appends one event to the FIFO; it completes only after
// the full dispatch has run inside the worker.
func (t *ChannelTransport) SendEvent(ctx context.Context, msg EventMessage) error {
	return t.submit(ctx, msg)
}

func (t *ChannelTransport) submit(ctx context.Context, msg Message) error {
	if t.destroyed.Load() {
		return &ProtocolError{Reason: "sandbox instance already destroyed"}
	}
	env, err := sealEnvelope(msg)
	if err != nil {
		return err
	}
	op := channelOp{env: env, reply: make(chan error, 1)}
	select {
	case t.ops <- op:
	case <-t.quit:
		return &ProtocolError{Reason: "sandbox instance already destroyed"}
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-op.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Destroy stops outbound delivery synchronously, shuts the worker
// down and tears down the inner interpreter. Operations still queued
// are answered with a protocol error rather than left hanging.
func (t *ChannelTransport) Destroy() error {
	if t.destroyed.Swap(true) {
		return nil
	}
	close(t.quit)
	t.wg.Wait()
	for {
		select {
		case op := <-t.ops:
			op.reply <- &ProtocolError{Reason: "sandbox instance already destroyed"}
		default:
			return t.inner.Destroy()
		}
	}
}
