package model

import "fmt"

// DocMetadata is the document-level information the document model
// supplies at load time.
type DocMetadata struct {
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
	Subject  string `json:"subject,omitempty" yaml:"subject,omitempty"`
	Keywords string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Creator  string `json:"creator,omitempty" yaml:"creator,omitempty"`
	Producer string `json:"producer,omitempty" yaml:"producer,omitempty"`
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	NumPages int    `json:"numPages,omitempty" yaml:"numPages,omitempty"`

	// Scripts are document-level scripts run once after setup.
	Scripts []string `json:"scripts,omitempty" yaml:"scripts,omitempty"`
}

// PrintParams mirrors the Acrobat print-parameter record. It is
// constructed lazily on first getPrintParams call.
type PrintParams struct {
	firstPage   int
	lastPage    int
	numCopies   int
	printerName string
}

func (p *PrintParams) ObjectID() string { return "" }

func (p *PrintParams) GetProp(name string) (any, bool) {
	switch name {
	case "firstPage":
		return p.firstPage, true
	case "lastPage":
		return p.lastPage, true
	case "numCopies":
		return p.numCopies, true
	case "printerName":
		return p.printerName, true
	}
	return nil, false
}

func (p *PrintParams) SetProp(name string, value any) (bool, error) {
	switch name {
	case "firstPage":
		p.firstPage = int(toFloat(value))
	case "lastPage":
		p.lastPage = int(toFloat(value))
	case "numCopies":
		p.numCopies = int(toFloat(value))
	case "printerName":
		p.printerName = stringify(value)
	default:
		return false, nil
	}
	return true, nil
}

func (p *PrintParams) Methods() []string { return nil }

func (p *PrintParams) CallMethod(string, []any) (any, bool, error) { return nil, false, nil }

// Doc is the document-level object: it aggregates all fields by name,
// holds the currently dispatched event for the duration of one
// dispatch, and exposes document metadata to scripts.
type Doc struct {
	meta      DocMetadata
	fields    map[string][]*Field // by logical name, in registration order
	order     []string            // field names in registration order
	event     *Event              // live only during one dispatch
	calculate bool
	app       *App
	emitFn    EmitFunc

	printParams *PrintParams

	// calculateNow is wired by the sandbox once the dispatcher
	// exists; it drives a full calculation-order pass.
	calculateNow func()
}

// NewDoc builds the document object. emit may be nil in tests.
func NewDoc(meta DocMetadata, emit EmitFunc) *Doc {
	return &Doc{
		meta:      meta,
		fields:    make(map[string][]*Field),
		calculate: true,
		emitFn:    emit,
	}
}

// AttachApp wires the owning App for field lookups.
func (d *Doc) AttachApp(app *App) { d.app = app }

// SetCalculateNow installs the recalculation hook.
func (d *Doc) SetCalculateNow(fn func()) { d.calculateNow = fn }

// AddField registers a field under its logical name and gives the
// field its back-reference for sibling synchronization.
func (d *Doc) AddField(f *Field) {
	if _, ok := d.fields[f.name]; !ok {
		d.order = append(d.order, f.name)
	}
	d.fields[f.name] = append(d.fields[f.name], f)
	f.doc = d
}

// SetEvent installs the live event for the duration of one dispatch
// chain; ClearEvent removes it when the chain finishes.
func (d *Doc) SetEvent(ev *Event) { d.event = ev }

// ClearEvent ends the live-event window.
func (d *Doc) ClearEvent() { d.event = nil }

// Event returns the currently dispatched event, nil outside a
// dispatch chain.
func (d *Doc) Event() *Event { return d.event }

// Calculate reports whether calculation-order recalculation is
// currently enabled (scripts may disable it via doc.calculate).
func (d *Doc) Calculate() bool { return d.calculate }

// Metadata returns the document metadata snapshot.
func (d *Doc) Metadata() DocMetadata { return d.meta }

// syncSiblings propagates a committed value to every widget instance
// sharing the logical name, emitting a host update per sibling. The
// originating field has already been written by its own proxy.
func (d *Doc) syncSiblings(origin *Field, value any) {
	for _, sibling := range d.fields[origin.name] {
		if sibling == origin {
			continue
		}
		sibling.setValue(value)
		d.emit(sibling.id, "value", value)
	}
}

func (d *Doc) emit(objectID, property string, value any) {
	if d.emitFn == nil {
		return
	}
	d.emitFn(objectID, property, value)
}

func (d *Doc) fieldArray(name string) []any {
	instances := d.fields[name]
	out := make([]any, 0, len(instances))
	if d.app == nil {
		return out
	}
	for _, f := range instances {
		if entry, ok := d.app.Lookup(f.id); ok {
			out = append(out, entry.Wrapped)
		}
	}
	return out
}

func (d *Doc) ObjectID() string { return "doc" }

func (d *Doc) GetProp(name string) (any, bool) {
	switch name {
	case "title":
		return d.meta.Title, true
	case "author":
		return d.meta.Author, true
	case "subject":
		return d.meta.Subject, true
	case "keywords":
		return d.meta.Keywords, true
	case "creator":
		return d.meta.Creator, true
	case "producer":
		return d.meta.Producer, true
	case "documentFileName":
		return d.meta.Filename, true
	case "numPages":
		return d.meta.NumPages, true
	case "numFields":
		n := 0
		for _, instances := range d.fields {
			n += len(instances)
		}
		return n, true
	case "calculate":
		return d.calculate, true
	case "event":
		if d.event == nil {
			return nil, false
		}
		return d.event, true
	}
	return nil, false
}

func (d *Doc) SetProp(name string, value any) (bool, error) {
	switch name {
	case "calculate":
		d.calculate = toBool(value)
		return true, nil
	case "title", "author", "subject", "keywords", "creator",
		"producer", "documentFileName", "numPages", "numFields", "event":
		return true, &ErrReadOnly{Property: name}
	}
	return false, nil
}

func (d *Doc) Methods() []string {
	return []string{
		"getField", "getNthFieldName", "calculateNow", "getPrintParams",
		"print", "exportAsFDF", "importAnFDF",
	}
}

func (d *Doc) CallMethod(name string, args []any) (any, bool, error) {
	switch name {
	case "getField":
		if len(args) == 0 || d.app == nil {
			return nil, true, nil
		}
		fieldName := stringify(args[0])
		instances := d.fields[fieldName]
		if len(instances) == 0 {
			return nil, true, nil
		}
		if entry, ok := d.app.Lookup(instances[0].id); ok {
			return entry.Wrapped, true, nil
		}
		return nil, true, nil
	case "getNthFieldName":
		idx := 0
		if len(args) > 0 {
			idx = int(toFloat(args[0]))
		}
		if idx < 0 || idx >= len(d.order) {
			return nil, true, fmt.Errorf("getNthFieldName: index %d out of range", idx)
		}
		return d.order[idx], true, nil
	case "calculateNow":
		if d.calculateNow != nil {
			d.calculateNow()
		}
		return nil, true, nil
	case "getPrintParams":
		if d.printParams == nil {
			d.printParams = &PrintParams{firstPage: 0, lastPage: d.meta.NumPages - 1, numCopies: 1}
		}
		return d.printParams, true, nil
	case "print":
		d.emit("doc", "print", true)
		return nil, true, nil
	case "exportAsFDF", "importAnFDF":
		return nil, true, &NotSupportedError{API: "doc." + name}
	}
	return nil, false, nil
}
