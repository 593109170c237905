package model

import (
	"errors"
	"testing"
	"time"

	"pdfscript/format"
)

func registered(doc *Doc, app *App, f *Field) *Wrapped {
	doc.AddField(f)
	w := NewWrapped(f, nil)
	app.Register(&RegistryEntry{Object: f, Wrapped: w})
	return w
}

func TestDocGetField(t *testing.T) {
	app := NewApp(nil, nil)
	doc := NewDoc(DocMetadata{Title: "invoice"}, nil)
	doc.AttachApp(app)
	w := registered(doc, app, textField("f1", "amount"))

	got, handled, err := doc.CallMethod("getField", []any{"amount"})
	if !handled || err != nil {
		t.Fatalf("getField: handled=%v err=%v", handled, err)
	}
	if got != w {
		t.Fatalf("getField returned %v, want the registered proxy", got)
	}

	// Missing fields are null, not an error.
	got, _, err = doc.CallMethod("getField", []any{"nope"})
	if err != nil || got != nil {
		t.Fatalf("missing field: %v, %v", got, err)
	}
}

func TestDocEventLifetime(t *testing.T) {
	doc := NewDoc(DocMetadata{}, nil)
	if _, ok := doc.GetProp("event"); ok {
		t.Fatal("no live event outside a dispatch")
	}
	ev := NewEvent("Calculate", EventPayload{})
	doc.SetEvent(ev)
	if v, ok := doc.GetProp("event"); !ok || v != ev {
		t.Fatal("live event should be visible during dispatch")
	}
	doc.ClearEvent()
	if _, ok := doc.GetProp("event"); ok {
		t.Fatal("event must not outlive its dispatch chain")
	}
}

func TestDocPrintParamsLazy(t *testing.T) {
	doc := NewDoc(DocMetadata{NumPages: 10}, nil)
	if doc.printParams != nil {
		t.Fatal("print params must be lazily constructed")
	}
	v, _, err := doc.CallMethod("getPrintParams", nil)
	if err != nil {
		t.Fatal(err)
	}
	pp := v.(*PrintParams)
	if last, _ := pp.GetProp("lastPage"); last != 9 {
		t.Fatalf("lastPage = %v", last)
	}
	v2, _, _ := doc.CallMethod("getPrintParams", nil)
	if v2 != v {
		t.Fatal("print params should be constructed once")
	}
}

func TestUtilMethods(t *testing.T) {
	u := &Util{}

	v, _, err := u.CallMethod("printd", []any{"D:yyyymmddHHMMss", "1707-04-15T03:14:15"})
	if err != nil {
		t.Fatal(err)
	}
	if v != "D:17070415031415" {
		t.Fatalf("printd = %v", v)
	}

	v, _, err = u.CallMethod("scand", []any{"2", "4/15/07 3:14:15 am"})
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2007, time.April, 15, 3, 14, 15, 0, time.UTC)
	if !v.(time.Time).Equal(want) {
		t.Fatalf("scand = %v", v)
	}

	var ferr *format.FormatError
	if _, _, err := u.CallMethod("scand", []any{"yyyy", "nope"}); !errors.As(err, &ferr) {
		t.Fatalf("scand mismatch should raise FormatError, got %v", err)
	}

	v, _, _ = u.CallMethod("printx", []any{"999-99-9999", "123456789"})
	if v != "123-45-6789" {
		t.Fatalf("printx = %v", v)
	}
}
