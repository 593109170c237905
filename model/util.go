package model

import (
	"time"

	"pdfscript/format"
)

// Util exposes the format mini-languages to scripts: printf, printd,
// scand and printx. It is stateless and never host-visible.
type Util struct{}

func (u *Util) ObjectID() string { return "" }

func (u *Util) GetProp(string) (any, bool) { return nil, false }

func (u *Util) SetProp(string, any) (bool, error) { return false, nil }

func (u *Util) Methods() []string {
	return []string{"printf", "printd", "scand", "printx", "crackURL", "iconStreamFromIcon"}
}

func (u *Util) CallMethod(name string, args []any) (any, bool, error) {
	switch name {
	case "printf":
		if len(args) == 0 {
			return "", true, nil
		}
		return format.Printf(stringify(args[0]), args[1:]...), true, nil
	case "printd":
		if len(args) < 2 {
			return "", true, nil
		}
		t, err := toTime(args[1])
		if err != nil {
			return nil, true, err
		}
		return format.FormatDate(stringify(args[0]), t), true, nil
	case "scand":
		if len(args) < 2 {
			return nil, true, &format.FormatError{Reason: "scand needs a pattern and an input"}
		}
		t, err := format.ParseDate(stringify(args[0]), stringify(args[1]))
		if err != nil {
			return nil, true, err
		}
		return t, true, nil
	case "printx":
		if len(args) < 2 {
			return "", true, nil
		}
		return format.Printx(stringify(args[0]), stringify(args[1])), true, nil
	case "crackURL", "iconStreamFromIcon":
		return nil, true, &NotSupportedError{API: "util." + name}
	}
	return nil, false, nil
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		// Scripts commonly hand printd an ISO-style string.
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, &format.FormatError{Reason: "unparseable date input " + t}
	case float64:
		// Milliseconds since the epoch, the script-runtime date
		// representation.
		return time.UnixMilli(int64(t)).UTC(), nil
	case int64:
		return time.UnixMilli(t).UTC(), nil
	}
	return time.Time{}, &format.FormatError{Reason: "unsupported date input"}
}

// Console forwards script diagnostics to the host. Writes are
// delivered as console updates rather than raw host logging so the
// surrounding viewer decides how to surface them.
type Console struct {
	emitFn EmitFunc
}

// NewConsole builds the console object; emit may be nil.
func NewConsole(emit EmitFunc) *Console { return &Console{emitFn: emit} }

func (c *Console) ObjectID() string { return "" }

func (c *Console) GetProp(string) (any, bool) { return nil, false }

func (c *Console) SetProp(string, any) (bool, error) { return false, nil }

func (c *Console) Methods() []string {
	return []string{"println", "show", "hide", "clear"}
}

func (c *Console) CallMethod(name string, args []any) (any, bool, error) {
	switch name {
	case "println":
		msg := ""
		if len(args) > 0 {
			msg = stringify(args[0])
		}
		if c.emitFn != nil {
			c.emitFn("console", "println", msg)
		}
		return nil, true, nil
	case "show", "hide", "clear":
		return nil, true, nil
	}
	return nil, false, nil
}
