package format

import "testing"

func TestPrintf(t *testing.T) {
	tests := []struct {
		pattern string
		args    []any
		want    string
	}{
		{"Total: %.2f", []any{1234.5}, "Total: 1,234.50"},
		{"%,1.2f", []any{1234.5}, "1234.50"},
		{"%,2.2f", []any{1234.5}, "1.234,50"},
		{"%d items", []any{42.0}, "42 items"},
		{"%x", []any{255.0}, "0xff"},
		{"%05d", []any{42.0}, "00042"},
		{"%+d", []any{7.0}, "+7"},
		{"%s and %s", []any{"a", "b"}, "a and b"},
		{"100%% sure", nil, "100% sure"},
		{"%f", []any{1.25}, "1.25"},
		{"missing %d arg", nil, "missing  arg"},
		{"stray %q sign", nil, "stray %q sign"},
	}
	for _, tt := range tests {
		if got := Printf(tt.pattern, tt.args...); got != tt.want {
			t.Errorf("Printf(%q, %v) = %q, want %q", tt.pattern, tt.args, got, tt.want)
		}
	}
}

func TestPrintfCached(t *testing.T) {
	first := compilePrintf("cache me: %.1f")
	second := compilePrintf("cache me: %.1f")
	if len(first) != len(second) {
		t.Fatal("inconsistent compile results")
	}
	if _, ok := printfCache.Load("cache me: %.1f"); !ok {
		t.Fatal("pattern should be cached by its literal string")
	}
}
