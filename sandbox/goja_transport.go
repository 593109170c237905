package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"

	"pdfscript/dispatch"
	"pdfscript/model"
	"pdfscript/observability"
)

// GojaTransport is the embedded-interpreter realization of the
// sandbox boundary. The generated program runs in a fresh goja
// runtime whose globals are limited to the capability-wrapped object
// graph; the only inbound entry is the dispatch function registered
// under the bundle's generated opaque name, and the only outbound
// channel is the message callback.
//
// All operations are single-flight: one Create or SendEvent runs to
// completion before the next is admitted, because the shared
// Event/App state is not reentrant.
type GojaTransport struct {
	mu  sync.Mutex
	log observability.Logger

	rt         *goja.Runtime
	app        *model.App
	doc        *model.Doc
	dispatcher *dispatch.Dispatcher

	entry     string
	onMsg     func(Message)
	created   bool
	destroyed bool

	objects map[model.ScriptObject]*goja.Object
	actions map[actionKey]goja.Callable

	// curEv tracks the live dispatch event so every action in one
	// chain sees the same script-side event object.
	curEv    *model.Event
	curEvObj *goja.Object
}

type actionKey struct {
	fieldID string
	trigger string
	index   int
}

// GojaOption adjusts transport construction.
type GojaOption func(*GojaTransport)

// WithGojaLogger attaches a structured logger.
func WithGojaLogger(log observability.Logger) GojaOption {
	return func(t *GojaTransport) { t.log = log }
}

// NewGojaTransport builds an empty transport; Create loads a bundle
// into it.
func NewGojaTransport(opts ...GojaOption) *GojaTransport {
	t := &GojaTransport{
		log:     observability.NopLogger{},
		objects: make(map[model.ScriptObject]*goja.Object),
		actions: make(map[actionKey]goja.Callable),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OnMessage registers the outbound message callback.
func (t *GojaTransport) OnMessage(fn func(Message)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMsg = fn
}

// Create instantiates the object graph described by the bundle and
// compiles every action script into a callable closure. It must
// complete before the first event; a second Create is a protocol
// error.
func (t *GojaTransport) Create(ctx context.Context, bundle *Bundle) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return &ProtocolError{Reason: "sandbox instance already destroyed"}
	}
	if t.created {
		return &ProtocolError{Reason: "sandbox already initialized"}
	}
	if bundle.DispatchKey == "" {
		return &ProtocolError{Reason: "bundle has no dispatch key"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.rt = goja.New()
	t.entry = bundle.DispatchKey
	emit := t.emitUpdate

	t.app = model.NewApp(bundle.CalculationOrder, emit)
	t.doc = model.NewDoc(bundle.Metadata, emit)
	t.doc.AttachApp(t.app)

	for _, desc := range bundle.Fields {
		f := model.NewField(desc)
		t.doc.AddField(f)
		entry := &model.RegistryEntry{Object: f, Wrapped: model.NewWrapped(f, emit)}
		t.app.Register(entry)
		t.objects[f] = t.rt.NewDynamicObject(&dynObject{t: t, w: entry.Wrapped})
	}

	// Restricted globals: nothing outside this fixed set resolves
	// inside the sandbox.
	docObj := t.objFor(model.NewWrapped(t.doc, emit))
	t.rt.Set("doc", docObj)
	t.rt.Set("app", t.objFor(model.NewWrapped(t.app, emit)))
	t.rt.Set("util", t.objFor(model.NewWrapped(&model.Util{}, nil)))
	t.rt.Set("console", t.objFor(model.NewWrapped(model.NewConsole(emit), nil)))
	t.rt.Set("global", t.rt.NewObject())

	t.compileActions(bundle)

	runner := &gojaRunner{t: t, docObj: docObj}
	t.dispatcher = dispatch.New(t.app, t.doc, runner, t.reportError,
		dispatch.WithLogger(t.log))
	t.doc.SetCalculateNow(t.dispatcher.RunCalculateAll)

	// Bootstrap-only capability: the timer hook is installed here
	// and the installation surface sealed before any document
	// script runs.
	if err := t.app.InstallTimers(&gojaTimerFactory{t: t}); err != nil {
		return fmt.Errorf("installing timers: %w", err)
	}
	t.app.Seal()

	t.installEntryPoint()

	t.created = true
	t.dispatcher.RunDocumentScripts()

	t.log.Info("sandbox created",
		observability.Int("fields", len(bundle.Fields)),
		observability.Int("calculationOrder", len(bundle.CalculationOrder)))
	return nil
}

// installEntryPoint registers the single dispatch function under the
// generated opaque name: non-enumerable, non-writable and
// non-configurable, so document scripts can neither discover nor
// replace it.
func (t *GojaTransport) installEntryPoint() {
	entryFn := t.rt.ToValue(func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) < 2 {
			return goja.Undefined()
		}
		fieldID := call.Arguments[0].String()
		trigger := call.Arguments[1].String()
		var payload model.EventPayload
		if len(call.Arguments) > 2 {
			if p, ok := call.Arguments[2].Export().(*model.EventPayload); ok {
				payload = *p
			}
		}
		t.dispatcher.Dispatch(fieldID, trigger, payload)
		return goja.Undefined()
	})
	t.rt.GlobalObject().DefineDataProperty(t.entry, entryFn,
		goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)
}

func (t *GojaTransport) compileActions(bundle *Bundle) {
	for _, desc := range bundle.Fields {
		for trigger, scripts := range desc.Actions {
			canonical := model.CanonicalTrigger(trigger)
			for i, src := range scripts {
				t.compileAction(actionKey{desc.ID, canonical, i}, src)
			}
		}
	}
	for i, src := range bundle.Metadata.Scripts {
		t.compileAction(actionKey{"doc", "Open", i}, src)
	}
}

// compileAction wraps one opaque action source into a closure taking
// the shared event. A compile failure is reported like a runtime
// script failure and the action becomes a no-op: one broken handler
// must not take the document down.
func (t *GojaTransport) compileAction(key actionKey, src string) {
	wrapped := "(function (event) {\n" + src + "\n})"
	v, err := t.rt.RunString(wrapped)
	if err != nil {
		t.reportError(key.fieldID, key.trigger, "compile failed: "+err.Error())
		return
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		t.reportError(key.fieldID, key.trigger, "compile produced no function")
		return
	}
	t.actions[key] = fn
}

// SendEvent runs one event dispatch to completion. Events are
// rejected until Create has been acknowledged; there is no implicit
// queuing against an uninitialized sandbox.
func (t *GojaTransport) SendEvent(ctx context.Context, msg EventMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.destroyed {
		return &ProtocolError{Reason: "sandbox instance already destroyed"}
	}
	if !t.created {
		return &ProtocolError{Reason: "sandbox not initialized"}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	defer close(done)
	defer t.rt.ClearInterrupt()
	go func() {
		select {
		case <-ctx.Done():
			t.rt.Interrupt(ctx.Err())
		case <-done:
		}
	}()

	entry := t.rt.GlobalObject().Get(t.entry)
	fn, ok := goja.AssertFunction(entry)
	if !ok {
		return &ProtocolError{Reason: "dispatch entry point missing"}
	}
	_, err := fn(goja.Undefined(),
		t.rt.ToValue(msg.FieldID),
		t.rt.ToValue(msg.Trigger),
		t.rt.ToValue(&msg.Payload))
	if err != nil {
		if interrupted, ok := err.(*goja.InterruptedError); ok {
			if cause, ok := interrupted.Value().(error); ok {
				return cause
			}
			return context.Canceled
		}
		return fmt.Errorf("dispatch failed: %w", err)
	}
	return nil
}

// Destroy tears the instance down: live timers are invalidated and no
// further message is delivered once it returns. Destroy waits for an
// in-flight operation to finish; subsequent operations are protocol
// errors.
func (t *GojaTransport) Destroy() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed {
		return nil
	}
	t.destroyed = true
	t.onMsg = nil
	if t.app != nil {
		t.app.CancelTimers()
	}
	t.log.Debug("sandbox destroyed")
	return nil
}

// emitUpdate is the single outbound channel for sandboxed state.
func (t *GojaTransport) emitUpdate(objectID, property string, value any) {
	if t.destroyed || t.onMsg == nil {
		return
	}
	t.onMsg(UpdateMessage{ObjectID: objectID, Property: property, Value: value})
}

func (t *GojaTransport) reportError(fieldID, trigger, message string) {
	if t.destroyed || t.onMsg == nil {
		return
	}
	t.onMsg(ErrorMessage{FieldID: fieldID, Trigger: trigger, Message: message})
}

// objFor returns the cached script-side object for a wrapped model
// object, creating and memoizing it on first use.
func (t *GojaTransport) objFor(w *model.Wrapped) *goja.Object {
	if obj, ok := t.objects[w.Object()]; ok {
		return obj
	}
	obj := t.rt.NewDynamicObject(&dynObject{t: t, w: w})
	t.objects[w.Object()] = obj
	return obj
}

// toJS converts a model-side value into its script-side form: wrapped
// objects map to their capability proxies, times to Date instances,
// everything else to the runtime's native conversion.
func (t *GojaTransport) toJS(v any) goja.Value {
	switch x := v.(type) {
	case nil:
		return goja.Null()
	case *model.Wrapped:
		return t.objFor(x)
	case *model.Event:
		return t.eventObj(x)
	case model.ScriptObject:
		return t.objFor(model.NewWrapped(x, nil))
	case time.Time:
		return t.newDate(x)
	case []any:
		converted := make([]interface{}, len(x))
		for i, e := range x {
			converted[i] = t.toJS(e)
		}
		return t.rt.ToValue(converted)
	}
	return t.rt.ToValue(v)
}

func (t *GojaTransport) newDate(when time.Time) goja.Value {
	ctor := t.rt.Get("Date")
	obj, err := t.rt.New(ctor, t.rt.ToValue(when.UnixMilli()))
	if err != nil {
		return goja.Undefined()
	}
	return obj
}

// dynObject adapts one capability proxy to the runtime's dynamic
// object protocol. Has always answers true, which keeps identifier
// probes from ever reaching an outer scope.
type dynObject struct {
	t *GojaTransport
	w *model.Wrapped
}

func (o *dynObject) Get(key string) goja.Value {
	v, ok := o.w.Get(key)
	if !ok {
		return goja.Undefined()
	}
	if bound, isMethod := v.(model.BoundMethod); isMethod {
		return o.t.methodFor(bound)
	}
	return o.t.toJS(v)
}

func (o *dynObject) Set(key string, val goja.Value) bool {
	if err := o.w.Set(key, val.Export()); err != nil {
		panic(o.t.rt.NewGoError(err))
	}
	return true
}

func (o *dynObject) Has(string) bool { return true }

func (o *dynObject) Delete(key string) bool {
	o.w.Delete(key)
	return true
}

func (o *dynObject) Keys() []string { return o.w.Keys() }

// methodFor materializes a bound public method as a native function.
// Unsupported surfaces and format failures are rethrown into the
// script so its own try/catch handling behaves as in Acrobat.
func (t *GojaTransport) methodFor(bound model.BoundMethod) goja.Value {
	return t.rt.ToValue(func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		result, handled, err := bound.Object.CallMethod(bound.Name, args)
		if !handled {
			return goja.Undefined()
		}
		if err != nil {
			panic(t.rt.NewGoError(err))
		}
		return t.toJS(result)
	})
}

// gojaRunner executes compiled action closures for the dispatcher.
type gojaRunner struct {
	t      *GojaTransport
	docObj *goja.Object
}

// eventObj returns the script-side view of the live dispatch event,
// reusing one object per dispatch chain.
func (t *GojaTransport) eventObj(ev *model.Event) *goja.Object {
	if t.curEv != ev {
		t.curEv = ev
		t.curEvObj = t.rt.NewDynamicObject(&dynObject{t: t, w: model.NewWrapped(ev, nil)})
	}
	return t.curEvObj
}

func (r *gojaRunner) RunAction(fieldID, trigger string, index int, ev *model.Event) error {
	fn, ok := r.t.actions[actionKey{fieldID, trigger, index}]
	if !ok {
		// Compile failed at create time; already reported.
		return nil
	}
	evObj := r.t.eventObj(ev)
	r.t.rt.Set("event", evObj)
	_, err := fn(r.docObj, evObj)
	if err != nil {
		return &ScriptError{FieldID: fieldID, Trigger: trigger, Err: err}
	}
	return nil
}

// gojaTimerFactory schedules sandbox-owned timers. Scripts run under
// the same single-flight lock as events; a destroyed instance drops
// the callback silently.
type gojaTimerFactory struct {
	t *GojaTransport
}

func (f *gojaTimerFactory) After(ms int, script string) func() {
	timer := time.AfterFunc(time.Duration(ms)*time.Millisecond, func() {
		f.t.runTimerScript(script)
	})
	return func() { timer.Stop() }
}

func (f *gojaTimerFactory) Every(ms int, script string) func() {
	if ms <= 0 {
		ms = 1
	}
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(time.Duration(ms) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				f.t.runTimerScript(script)
			}
		}
	}()
	return func() { once.Do(func() { close(stop) }) }
}

func (t *GojaTransport) runTimerScript(script string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.destroyed || !t.created {
		return
	}
	if _, err := t.rt.RunString(script); err != nil {
		t.reportError("doc", "Timer", err.Error())
	}
}
