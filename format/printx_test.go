package format

import "testing"

func TestPrintx(t *testing.T) {
	tests := []struct {
		name, template, source, want string
	}{
		{"phone number", "(999) 999-9999", "aaa14159697489zzz", "(141) 596-9748"},
		{"ssn grouping", "999-99-9999", "123456789", "123-45-6789"},
		{"uppercase", ">?????", "hello", "HELLO"},
		{"lowercase", "<?????", "HELLO", "hello"},
		{"mode reset", ">??=???", "hello", "HEllo"},
		{"alpha skips digits", "AAA", "1a2b3c", "abc"},
		{"alnum", "XXXX", " a 1b2", "a1b2"},
		{"remainder", "9-*", "5abc", "5-abc"},
		{"escaped class char", `\9?`, "7", "97"},
		{"literals pass through", "x?x", "ab", "xax"},
		{"source exhausted", "9999", "12", "12"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Printx(tt.template, tt.source); got != tt.want {
				t.Fatalf("Printx(%q, %q) = %q, want %q", tt.template, tt.source, got, tt.want)
			}
		})
	}
}
