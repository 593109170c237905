package model

import (
	"errors"
	"sort"
)

// TimerFactory schedules sandbox-owned timers. The sandbox installs it
// during bootstrap; the factory owns script evaluation so the model
// never interprets source text itself. Returned cancel funcs must be
// safe to call more than once.
type TimerFactory interface {
	// After runs script once after ms milliseconds.
	After(ms int, script string) (cancel func())
	// Every runs script repeatedly with a ms-millisecond period.
	Every(ms int, script string) (cancel func())
}

// RegistryEntry pairs one field with its capability proxy, keyed by
// field id in the App registry for dispatch lookup.
type RegistryEntry struct {
	Object  *Field
	Wrapped *Wrapped
}

// App is the process-wide object, one per sandbox instance. It owns
// the field registry and the calculation order for the life of that
// instance; Doc and Field objects never outlive it.
type App struct {
	registry  map[string]*RegistryEntry
	calcOrder []string
	emitFn    EmitFunc

	timerFactory TimerFactory
	sealed       bool
	timers       map[int]func()
	nextTimerID  int

	language string
	platform string
}

// NewApp builds the sandbox-wide application object. The calculation
// order is treated as read-only input from the document model; it is
// never recomputed or reordered here.
func NewApp(calcOrder []string, emit EmitFunc) *App {
	return &App{
		registry:  make(map[string]*RegistryEntry),
		calcOrder: calcOrder,
		emitFn:    emit,
		timers:    make(map[int]func()),
		language:  "ENU",
		platform:  "UNIX",
	}
}

// InstallTimers installs the bootstrap-only timer hook. It fails once
// the App has been sealed: after initialization the running instance
// keeps only the minimal capability set.
func (a *App) InstallTimers(f TimerFactory) error {
	if a.sealed {
		return errors.New("app: bootstrap capabilities already stripped")
	}
	a.timerFactory = f
	return nil
}

// Seal strips the bootstrap-only installation hooks. Timers already
// installed keep working; new hooks cannot be attached.
func (a *App) Seal() { a.sealed = true }

// Register adds a field and its proxy to the dispatch registry.
func (a *App) Register(entry *RegistryEntry) {
	a.registry[entry.Object.ID()] = entry
}

// Lookup resolves a field id to its registry entry.
func (a *App) Lookup(id string) (*RegistryEntry, bool) {
	entry, ok := a.registry[id]
	return entry, ok
}

// CalculationOrder returns the externally supplied recalculation
// sequence; callers must not mutate it.
func (a *App) CalculationOrder() []string { return a.calcOrder }

// CancelTimers invalidates every live timer. Called at sandbox
// teardown; no timer survives destruction.
func (a *App) CancelTimers() {
	ids := make([]int, 0, len(a.timers))
	for id := range a.timers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		a.timers[id]()
		delete(a.timers, id)
	}
}

func (a *App) ObjectID() string { return "app" }

func (a *App) GetProp(name string) (any, bool) {
	switch name {
	case "language":
		return a.language, true
	case "platform":
		return a.platform, true
	case "viewerType":
		return "Reader", true
	case "viewerVersion":
		return 11.0, true
	case "numPlugIns":
		return 0, true
	}
	return nil, false
}

func (a *App) SetProp(name string, value any) (bool, error) {
	switch name {
	case "language", "platform", "viewerType", "viewerVersion", "numPlugIns":
		return true, &ErrReadOnly{Property: name}
	}
	return false, nil
}

func (a *App) Methods() []string {
	return []string{
		"alert", "beep",
		"setTimeOut", "setInterval", "clearTimeOut", "clearInterval",
		"popUpMenu", "popUpMenuEx", "browseForDoc", "execDialog",
		"goBack", "goForward", "launchURL", "newDoc", "openDoc",
	}
}

func (a *App) CallMethod(name string, args []any) (any, bool, error) {
	switch name {
	case "alert":
		msg := ""
		if len(args) > 0 {
			msg = stringify(args[0])
		}
		a.emit("app", "alert", msg)
		return 1, true, nil
	case "beep":
		a.emit("app", "beep", true)
		return nil, true, nil
	case "setTimeOut":
		return a.addTimer(args, false)
	case "setInterval":
		return a.addTimer(args, true)
	case "clearTimeOut", "clearInterval":
		if len(args) > 0 {
			id := int(toFloat(args[0]))
			if cancel, ok := a.timers[id]; ok {
				cancel()
				delete(a.timers, id)
			}
		}
		return nil, true, nil
	case "popUpMenu", "popUpMenuEx", "browseForDoc", "execDialog",
		"goBack", "goForward", "launchURL", "newDoc", "openDoc":
		return nil, true, &NotSupportedError{API: "app." + name}
	}
	return nil, false, nil
}

func (a *App) addTimer(args []any, repeat bool) (any, bool, error) {
	if a.timerFactory == nil {
		return nil, true, &NotSupportedError{API: "app timers"}
	}
	script := ""
	ms := 0
	if len(args) > 0 {
		script = stringify(args[0])
	}
	if len(args) > 1 {
		ms = int(toFloat(args[1]))
	}
	var cancel func()
	if repeat {
		cancel = a.timerFactory.Every(ms, script)
	} else {
		cancel = a.timerFactory.After(ms, script)
	}
	a.nextTimerID++
	id := a.nextTimerID
	a.timers[id] = cancel
	return id, true, nil
}

func (a *App) emit(objectID, property string, value any) {
	if a.emitFn == nil {
		return
	}
	a.emitFn(objectID, property, value)
}
