package format

import (
	"errors"
	"testing"
	"time"
)

func TestFormatDateShorthands(t *testing.T) {
	d := time.Date(1707, 4, 15, 3, 14, 15, 0, time.UTC)

	if got := FormatDate("D:yyyymmddHHMMss", d); got != "D:17070415031415" {
		t.Fatalf("printd 0-style = %q", got)
	}
	if got := FormatDate("0", d); got != "D:17070415031415" {
		t.Fatalf("shorthand 0 = %q", got)
	}
	if got := FormatDate("m/d/yy h:MM:ss tt", d); got != "4/15/07 3:14:15 am" {
		t.Fatalf("printd 2-style = %q", got)
	}
	if got := FormatDate("1", d); got != "1707.04.15 03:14:15" {
		t.Fatalf("shorthand 1 = %q", got)
	}
}

func TestFormatDateTokens(t *testing.T) {
	d := time.Date(2024, 12, 3, 13, 5, 9, 0, time.UTC)
	tests := []struct {
		pattern, want string
	}{
		{"yyyy-mm-dd", "2024-12-03"},
		{"yy", "24"},
		{"mmm mmmm", "Dec December"},
		{"ddd dddd", "Tue Tuesday"},
		{"h:MM tt", "1:05 pm"},
		{"hh:MM:ss", "01:05:09"},
		{"H:M:s", "13:5:9"},
		{"t", "p"},
		{"dd/mm/yyyy HH:MM", "03/12/2024 13:05"},
	}
	for _, tt := range tests {
		if got := FormatDate(tt.pattern, d); got != tt.want {
			t.Errorf("FormatDate(%q) = %q, want %q", tt.pattern, got, tt.want)
		}
	}
}

func TestFormatDateEscapedCharCode(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	// Escaped characters pass through as their character code.
	if got := FormatDate(`\q`, d); got != "113" {
		t.Fatalf("escaped char = %q, want %q", got, "113")
	}
}

func TestScandShorthand(t *testing.T) {
	got, err := ParseDate("2", "4/15/07 3:14:15 am")
	if err != nil {
		t.Fatalf("scand: %v", err)
	}
	want := time.Date(2007, time.April, 15, 3, 14, 15, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("scand = %v, want %v", got, want)
	}
}

func TestParseDateRoundTrip(t *testing.T) {
	patterns := []string{
		"D:yyyymmddHHMMss",
		"yyyy.mm.dd HH:MM:ss",
		"m/d/yy h:MM:ss tt",
		"mmm d, yyyy HH:MM:ss",
	}
	dates := []time.Time{
		time.Date(2007, 4, 15, 3, 14, 15, 0, time.UTC),
		time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC),
		time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2010, 6, 9, 12, 0, 1, 0, time.UTC),
	}
	for _, pattern := range patterns {
		for _, d := range dates {
			text := FormatDate(pattern, d)
			got, err := ParseDate(pattern, text)
			if err != nil {
				t.Fatalf("ParseDate(%q, %q): %v", pattern, text, err)
			}
			if !got.Equal(d) {
				t.Fatalf("round trip %q: %v -> %q -> %v", pattern, d, text, got)
			}
		}
	}
}

func TestParseDateMismatch(t *testing.T) {
	var ferr *FormatError
	if _, err := ParseDate("yyyy-mm-dd", "12/31/2024"); !errors.As(err, &ferr) {
		t.Fatalf("want *FormatError, got %v", err)
	}
	if _, err := ParseDate("mmm d, yyyy", "Notamonth 5, 2024"); !errors.As(err, &ferr) {
		t.Fatalf("want *FormatError for bad month name, got %v", err)
	}
}

func TestParseDateCaching(t *testing.T) {
	p1, err := compileDateParser("dd.mm.yyyy")
	if err != nil {
		t.Fatal(err)
	}
	p2, err := compileDateParser("dd.mm.yyyy")
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Fatal("compiled parser should be cached by pattern string")
	}
}
