package sandbox

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfscript/model"
)

type recorder struct {
	mu       sync.Mutex
	updates  []UpdateMessage
	errors   []ErrorMessage
	messages []Message
}

func (r *recorder) hook() func(Message) {
	return func(msg Message) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.messages = append(r.messages, msg)
		switch m := msg.(type) {
		case UpdateMessage:
			r.updates = append(r.updates, m)
		case ErrorMessage:
			r.errors = append(r.errors, m)
		}
	}
}

func (r *recorder) valueOf(objectID, property string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var v any
	found := false
	for _, u := range r.updates {
		if u.ObjectID == objectID && u.Property == property {
			v, found = u.Value, true
		}
	}
	return v, found
}

func mustBundle(t *testing.T, fields []model.FieldDescriptor, calcOrder []string, meta model.DocMetadata) *Bundle {
	t.Helper()
	bundle, err := BuildBundle(fields, calcOrder, meta)
	require.NoError(t, err)
	return bundle
}

func newSandbox(t *testing.T, bundle *Bundle) (*GojaTransport, *recorder) {
	t.Helper()
	rec := &recorder{}
	tr := NewGojaTransport()
	tr.OnMessage(rec.hook())
	require.NoError(t, tr.Create(context.Background(), bundle))
	t.Cleanup(func() { tr.Destroy() })
	return tr, rec
}

func TestSendEventBeforeCreateRejected(t *testing.T) {
	tr := NewGojaTransport()
	err := tr.SendEvent(context.Background(), EventMessage{FieldID: "a", Trigger: "MouseUp"})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestDoubleCreateRejected(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{{ID: "a", Name: "a", Type: "text"}}, nil, model.DocMetadata{})
	tr, _ := newSandbox(t, bundle)
	err := tr.Create(context.Background(), bundle)
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestMouseUpActionWritesValue(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "btn", Name: "btn", Type: "button", Actions: map[string][]string{
			"Mouse Up": {`this.getField("out").value = 42;`},
		}},
		{ID: "out", Name: "out", Type: "text"},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "btn", Trigger: "MouseUp"}))

	v, ok := rec.valueOf("out", "value")
	require.True(t, ok, "expected a value update for field out")
	assert.EqualValues(t, 42, v)
	assert.Empty(t, rec.errors)
}

func TestHostGlobalsUnreachable(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "probe", Name: "probe", Type: "text", Actions: map[string][]string{
			"MouseUp": {`
				var leaks = [];
				if (typeof require !== "undefined") leaks.push("require");
				if (typeof process !== "undefined") leaks.push("process");
				if (typeof fetch !== "undefined") leaks.push("fetch");
				this.getField("probe").value = leaks.join(",");
			`},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "probe", Trigger: "MouseUp"}))

	v, ok := rec.valueOf("probe", "value")
	require.True(t, ok)
	assert.Equal(t, "", v)
}

func TestCalculationChainOrder(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "a", Name: "a", Type: "text", Value: "2"},
		{ID: "b", Name: "b", Type: "text", Actions: map[string][]string{
			"Calculate": {`event.value = Number(this.getField("a").value) * 10;`},
		}},
		{ID: "c", Name: "c", Type: "text", Actions: map[string][]string{
			"Calculate": {`event.value = Number(this.getField("b").value) + 1;`},
		}},
	}, []string{"b", "c"}, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{
		FieldID: "a",
		Trigger: "Keystroke",
		Payload: model.EventPayload{Value: "2", WillCommit: true},
	}))

	b, ok := rec.valueOf("b", "value")
	require.True(t, ok)
	assert.EqualValues(t, 20, b)
	c, ok := rec.valueOf("c", "value")
	require.True(t, ok)
	assert.EqualValues(t, 21, c)
	assert.Empty(t, rec.errors)
}

func TestValidateRejectionBlocksCommit(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "age", Name: "age", Type: "text", Value: "30", Actions: map[string][]string{
			"Validate": {`if (Number(event.value) > 120) event.rc = false;`},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{
		FieldID: "age",
		Trigger: "Keystroke",
		Payload: model.EventPayload{Value: "500", WillCommit: true},
	}))

	_, ok := rec.valueOf("age", "value")
	assert.False(t, ok, "rejected value must not be committed")
}

func TestUtilPrintdFromScript(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "when", Name: "when", Type: "text", Actions: map[string][]string{
			"MouseUp": {`
				var d = new Date(2007, 3, 15, 3, 14, 15);
				this.getField("when").value = util.printd("0", d);
			`},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "when", Trigger: "MouseUp"}))

	v, ok := rec.valueOf("when", "value")
	require.True(t, ok)
	assert.Equal(t, "D:20070415031415", v)
	assert.Empty(t, rec.errors)
}

func TestNotSupportedErrorCatchable(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "f", Name: "f", Type: "text", Actions: map[string][]string{
			"MouseUp": {`
				var caught = "none";
				try {
					app.launchURL("https://example.com");
				} catch (e) {
					caught = String(e);
				}
				this.getField("f").value = caught;
			`},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "f", Trigger: "MouseUp"}))

	v, ok := rec.valueOf("f", "value")
	require.True(t, ok)
	assert.Contains(t, v.(string), "launchURL")
	assert.Empty(t, rec.errors, "a caught exception must not surface as an error message")
}

func TestThrowingActionReportsOneError(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "bad", Name: "bad", Type: "text", Actions: map[string][]string{
			"MouseUp": {
				`throw new Error("boom");`,
				`this.getField("bad").value = "second still runs";`,
			},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "bad", Trigger: "MouseUp"}))

	require.Len(t, rec.errors, 1)
	assert.Equal(t, "bad", rec.errors[0].FieldID)
	assert.Equal(t, "MouseUp", rec.errors[0].Trigger)
	assert.Contains(t, rec.errors[0].Message, "boom")

	v, ok := rec.valueOf("bad", "value")
	require.True(t, ok, "later actions on the same trigger still run")
	assert.Equal(t, "second still runs", v)
}

func TestUnknownFieldSilentNoOp(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{{ID: "a", Name: "a", Type: "text"}}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "ghost", Trigger: "MouseUp"}))
	assert.Empty(t, rec.messages)
}

func TestDocumentScriptsRunOnCreate(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "greet", Name: "greet", Type: "text"},
	}, nil, model.DocMetadata{
		Scripts: []string{`this.getField("greet").value = "hello from " + (this.title || "untitled");`},
		Title:   "Invoice",
	})
	_, rec := newSandbox(t, bundle)

	v, ok := rec.valueOf("greet", "value")
	require.True(t, ok)
	assert.Equal(t, "hello from Invoice", v)
}

func TestCompileFailureReportedActionSkipped(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "f", Name: "f", Type: "text", Actions: map[string][]string{
			"MouseUp": {`this is not javascript (((`},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.Len(t, rec.errors, 1)
	assert.Equal(t, "f", rec.errors[0].FieldID)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{FieldID: "f", Trigger: "MouseUp"}))
	assert.Len(t, rec.errors, 1, "the broken action stays a no-op at event time")
}

func TestDestroyStopsDelivery(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "a", Name: "a", Type: "text", Actions: map[string][]string{
			"MouseUp": {`this.getField("a").value = "x";`},
		}},
	}, nil, model.DocMetadata{})
	rec := &recorder{}
	tr := NewGojaTransport()
	tr.OnMessage(rec.hook())
	require.NoError(t, tr.Create(context.Background(), bundle))

	require.NoError(t, tr.Destroy())
	err := tr.SendEvent(context.Background(), EventMessage{FieldID: "a", Trigger: "MouseUp"})
	var perr *ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Empty(t, rec.messages)

	assert.NoError(t, tr.Destroy(), "destroy is idempotent")
}

func TestEventObjectSharedAcrossChain(t *testing.T) {
	bundle := mustBundle(t, []model.FieldDescriptor{
		{ID: "f", Name: "f", Type: "text", Actions: map[string][]string{
			"Validate": {
				`event.tag = "first";`,
				`this.getField("f").value = event.tag;`,
			},
		}},
	}, nil, model.DocMetadata{})
	tr, rec := newSandbox(t, bundle)

	require.NoError(t, tr.SendEvent(context.Background(), EventMessage{
		FieldID: "f",
		Trigger: "Validate",
		Payload: model.EventPayload{Value: "v", WillCommit: true},
	}))

	v, ok := rec.valueOf("f", "value")
	require.True(t, ok)
	assert.Equal(t, "first", v)
}
