package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfscript/model"
)

func TestBuildBundleRejectsBadFields(t *testing.T) {
	var perr *ProtocolError

	_, err := BuildBundle([]model.FieldDescriptor{{Name: "anonymous"}}, nil, model.DocMetadata{})
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "anonymous")

	_, err = BuildBundle([]model.FieldDescriptor{
		{ID: "a", Name: "a"},
		{ID: "a", Name: "a copy"},
	}, nil, model.DocMetadata{})
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "duplicate")
}

func TestBuildBundleToleratesStaleCalcOrder(t *testing.T) {
	bundle, err := BuildBundle([]model.FieldDescriptor{{ID: "a", Name: "a"}},
		[]string{"a", "removed"}, model.DocMetadata{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "removed"}, bundle.CalculationOrder)
}

func TestDispatchKeyUniquePerBundle(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 32; i++ {
		bundle, err := BuildBundle(nil, nil, model.DocMetadata{})
		require.NoError(t, err)
		require.NotEmpty(t, bundle.DispatchKey)
		_, dup := seen[bundle.DispatchKey]
		require.False(t, dup, "dispatch keys must never repeat")
		seen[bundle.DispatchKey] = struct{}{}
	}
}
