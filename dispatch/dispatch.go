// Package dispatch implements the event lifecycle for form scripts:
// the Dispatch → Validate → Calculate → Format state machine and the
// calculation-order-driven recalculation pass.
//
// The dispatcher runs inside the sandbox. It owns no script execution
// itself; action bodies are invoked through an ActionRunner so the
// state machine is independent of the interpreter backend.
package dispatch

import (
	"context"
	"reflect"

	"pdfscript/model"
	"pdfscript/observability"
)

// ActionRunner executes one attached script body against the shared
// dispatch event. The returned error is a script-level failure; the
// dispatcher reports it and continues.
type ActionRunner interface {
	RunAction(fieldID, trigger string, index int, ev *model.Event) error
}

// ErrorReporter receives per-action script failures with enough
// context for host diagnostics. It must never be handed raw script
// source.
type ErrorReporter func(fieldID, trigger, message string)

// Dispatcher drives one event dispatch chain at a time over the field
// registry. It is not safe for concurrent use; the sandbox serializes
// inbound events before they reach it.
type Dispatcher struct {
	app    *model.App
	doc    *model.Doc
	runner ActionRunner
	report ErrorReporter
	log    observability.Logger
	tracer observability.Tracer
}

// Option adjusts dispatcher construction.
type Option func(*Dispatcher)

// WithLogger attaches a structured logger.
func WithLogger(log observability.Logger) Option {
	return func(d *Dispatcher) { d.log = log }
}

// WithTracer attaches a tracer for per-dispatch spans.
func WithTracer(tr observability.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = tr }
}

// New builds a dispatcher over the sandbox object graph. report may
// be nil when the host does not consume diagnostics.
func New(app *model.App, doc *model.Doc, runner ActionRunner, report ErrorReporter, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		app:    app,
		doc:    doc,
		runner: runner,
		report: report,
		log:    observability.NopLogger{},
		tracer: observability.NopTracer(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch runs one inbound event to completion, including the full
// Validate → Calculate → Format fan-out. Unknown field ids are a
// silent no-op: Acrobat tolerates stale references from fields that
// no longer exist.
func (d *Dispatcher) Dispatch(fieldID, trigger string, payload model.EventPayload) {
	entry, ok := d.app.Lookup(fieldID)
	if !ok {
		d.log.Debug("dropping event for unknown field",
			observability.String("field", fieldID),
			observability.String("trigger", trigger))
		return
	}

	name := model.CanonicalTrigger(trigger)
	_, span := d.tracer.StartSpan(context.Background(), "dispatch."+name)
	defer span.Finish()
	span.SetTag("field", fieldID)

	ev := model.NewEvent(name, payload)
	d.doc.SetEvent(ev)
	defer d.doc.ClearEvent()

	if name == "Format" {
		// Format events always see the committed value.
		ev.Value = entry.Object.Value()
	}

	ran := d.runActions(entry, entry, ev, name)

	switch name {
	case "Keystroke":
		if ev.RC && ev.WillCommit {
			d.runValidate(entry, ev)
		}
	case "Format":
		if ran {
			d.pushDisplay(entry, ev)
		}
	}
}

// RunDocumentScripts executes the document-level scripts once, after
// setup. Failures are isolated per script, mirroring action handling.
func (d *Dispatcher) RunDocumentScripts() {
	scripts := d.doc.Metadata().Scripts
	if len(scripts) == 0 {
		return
	}
	ev := model.NewEvent("Open", model.EventPayload{})
	ev.Type = "Doc"
	d.doc.SetEvent(ev)
	defer d.doc.ClearEvent()
	for i := range scripts {
		if err := d.runner.RunAction("doc", "Open", i, ev); err != nil {
			d.reportError("doc", "Open", err)
		}
	}
}

// RunCalculateAll drives a full calculation-order pass with no
// originating field, backing doc.calculateNow().
func (d *Dispatcher) RunCalculateAll() {
	ev := model.NewEvent("Calculate", model.EventPayload{})
	d.doc.SetEvent(ev)
	defer d.doc.ClearEvent()
	d.runCalculate(nil, ev)
}

// runValidate is the commit pipeline for one field: validate the
// pending value, commit it, recalculate every dependent field, then
// reformat this field. The two-phase "commit own value, recalc
// others, then reformat self" order matches observable Acrobat
// behavior and must not change.
func (d *Dispatcher) runValidate(entry *model.RegistryEntry, ev *model.Event) {
	snapshot := entry.Object.Value()
	d.runActions(entry, entry, ev, "Validate")
	if !ev.RC {
		return
	}

	if !valuesEqual(ev.Value, snapshot) {
		entry.Wrapped.SetPublic("value", ev.Value)
	}

	d.runCalculate(entry, ev)

	committed := entry.Object.Value()
	ev.Value = committed
	if d.runActions(entry, entry, ev, "Format") && !valuesEqual(ev.Value, committed) {
		d.pushDisplay(entry, ev)
	}
}

// runCalculate iterates the externally supplied calculation order: a
// flat sequence, not a dependency graph. Ids that no longer resolve
// are skipped; no reordering and no cycle detection happen here. A
// cycle re-runs each downstream field once per pass.
func (d *Dispatcher) runCalculate(source *model.RegistryEntry, ev *model.Event) {
	if !d.doc.Calculate() {
		return
	}
	for _, id := range d.app.CalculationOrder() {
		target, ok := d.app.Lookup(id)
		if !ok {
			continue
		}

		// Seed from the target's current value so a field with no
		// Calculate script keeps its value.
		ev.Value = target.Object.Value()
		origin := source
		if origin == nil {
			origin = target
		}
		d.runActionsPair(origin, target, ev, "Calculate")

		d.runActions(target, target, ev, "Validate")
		if !ev.RC {
			// Rejected: the value is not committed and Format
			// does not run for this target.
			continue
		}

		if !valuesEqual(ev.Value, target.Object.Value()) {
			target.Wrapped.SetPublic("value", ev.Value)
		}

		committed := target.Object.Value()
		ev.Value = committed
		if d.runActions(target, target, ev, "Format") && !valuesEqual(ev.Value, committed) {
			d.pushDisplay(target, ev)
		}
	}
}

// runActions executes every script attached to trigger on the target
// field, with the target also acting as event source.
func (d *Dispatcher) runActions(source, target *model.RegistryEntry, ev *model.Event, trigger string) bool {
	return d.runActionsPair(source, target, ev, trigger)
}

// runActionsPair resets rc, points the event at the given source and
// target, and runs the target's action list for trigger. A script
// exception is reported to the host and leaves rc true so one broken
// handler cannot starve the rest of the chain. Returns whether any
// actions were attached.
func (d *Dispatcher) runActionsPair(source, target *model.RegistryEntry, ev *model.Event, trigger string) bool {
	ev.RC = true
	ev.Source = source.Wrapped
	ev.Target = target.Wrapped
	scripts := target.Object.ActionsFor(trigger)
	if len(scripts) == 0 {
		return false
	}
	for i := range scripts {
		if err := d.runner.RunAction(target.Object.ID(), trigger, i, ev); err != nil {
			d.reportError(target.Object.ID(), trigger, err)
			ev.RC = true
		}
	}
	return true
}

func (d *Dispatcher) pushDisplay(entry *model.RegistryEntry, ev *model.Event) {
	entry.Wrapped.SetPublic("valueAsString", ev.Value)
}

func (d *Dispatcher) reportError(fieldID, trigger string, err error) {
	d.log.Warn("action script failed",
		observability.String("field", fieldID),
		observability.String("trigger", trigger),
		observability.Error("err", err))
	if d.report != nil {
		d.report(fieldID, trigger, err.Error())
	}
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(a, b)
}
