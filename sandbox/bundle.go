package sandbox

import (
	"fmt"

	"github.com/google/uuid"

	"pdfscript/model"
)

// Bundle is the declarative, side-effect-free-to-construct program
// description for one document load: every field with its opaque
// action sources, the externally computed calculation order and the
// document metadata. Action bodies are passed through unchanged; the
// core never parses or analyzes them.
type Bundle struct {
	Fields           []model.FieldDescriptor
	CalculationOrder []string
	Metadata         model.DocMetadata

	// DispatchKey names the single dispatch entry point inside the
	// sandbox. It is chosen at generation time from a
	// cryptographically random identifier so no script-supplied
	// string can collide with or spoof it.
	DispatchKey string
}

// BuildBundle validates the field list and stamps the bundle with its
// generated dispatch key. Calculation-order entries naming unknown
// fields are left in place: the dispatcher skips stale ids at
// runtime, matching Acrobat's tolerance for removed fields.
func BuildBundle(fields []model.FieldDescriptor, calcOrder []string, meta model.DocMetadata) (*Bundle, error) {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.ID == "" {
			return nil, &ProtocolError{Reason: fmt.Sprintf("field %q has no id", f.Name)}
		}
		if _, dup := seen[f.ID]; dup {
			return nil, &ProtocolError{Reason: "duplicate field id " + f.ID}
		}
		seen[f.ID] = struct{}{}
	}
	return &Bundle{
		Fields:           fields,
		CalculationOrder: calcOrder,
		Metadata:         meta,
		DispatchKey:      uuid.NewString(),
	}, nil
}

// CreateMessage renders the bundle as its boundary record.
func (b *Bundle) CreateMessage() CreateMessage {
	return CreateMessage{
		Fields:           b.Fields,
		CalculationOrder: b.CalculationOrder,
		Metadata:         b.Metadata,
		DispatchKey:      b.DispatchKey,
	}
}

func bundleFromMessage(msg CreateMessage) *Bundle {
	return &Bundle{
		Fields:           msg.Fields,
		CalculationOrder: msg.CalculationOrder,
		Metadata:         msg.Metadata,
		DispatchKey:      msg.DispatchKey,
	}
}
