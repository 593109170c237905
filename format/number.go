// Package format implements the pattern mini-languages used by form
// scripts: printf-style number formatting, printd/scand date formatting
// and parsing, and the printx case-transform template.
//
// Formatting is lenient (bad numeric input formats as "0"); parsing is
// strict and reports a *FormatError on pattern/input mismatch. Compiled
// date patterns are cached by their literal format string so repeated
// formatting of many fields with the same pattern does not recompile.
package format

import (
	"math"
	"strconv"
	"strings"
)

// SeparatorStyle selects the thousands/decimal separator pair used by
// FormatNumber. The zero value is the default comma-grouped style.
type SeparatorStyle int

const (
	// StyleCommaDot renders 1,234.56.
	StyleCommaDot SeparatorStyle = iota
	// StyleDot renders 1234.56.
	StyleDot
	// StyleDotComma renders 1.234,56.
	StyleDotComma
	// StyleComma renders 1234,56.
	StyleComma
	// StyleApostropheDot renders 1'234.56.
	StyleApostropheDot
)

func (s SeparatorStyle) separators() (thousands, decimal string) {
	switch s {
	case StyleDot:
		return "", "."
	case StyleDotComma:
		return ".", ","
	case StyleComma:
		return "", ","
	case StyleApostropheDot:
		return "'", "."
	default:
		return ",", "."
	}
}

// NumberFlags carries the optional printf-style modifiers understood by
// FormatNumber.
type NumberFlags struct {
	Separator SeparatorStyle
	// Width pads the rendered number to at least Width characters.
	Width int
	// ZeroPad pads with zeros (after the sign) instead of spaces.
	ZeroPad bool
	// Sign is '+' to always emit a sign, ' ' to emit a space for
	// non-negative values, or zero for the default.
	Sign byte
	// Hex renders the truncated integer value in hexadecimal with a
	// "0x" prefix; Decimals and Separator are ignored.
	Hex bool
}

// FormatNumber renders a numeric value (or numeric string) with the
// requested decimal count and flags. Input that does not parse as a
// number, NaN and infinities all render as zero: number formatting in
// the scripting layer never throws.
//
// String input is trimmed and may use ',' as the decimal separator.
// The integer part is truncated and the fraction derived by
// subtraction, following the floating-point behavior that form
// documents were authored against.
func FormatNumber(value any, decimals int, f NumberFlags) string {
	v := coerceNumber(value)
	if decimals < 0 {
		decimals = 0
	}

	neg := math.Signbit(v) && v != 0
	abs := math.Abs(v)

	if f.Hex {
		return pad(signPrefix(neg, f.Sign)+"0x"+strconv.FormatUint(uint64(math.Trunc(abs)), 16), f)
	}

	intPart := math.Trunc(abs)
	frac := abs - intPart

	fracDigits := ""
	if decimals > 0 {
		s := strconv.FormatFloat(frac, 'f', decimals, 64)
		// Rounding the fraction can carry into the integer part
		// ("0.9999" at 2 decimals becomes "1.00").
		if strings.HasPrefix(s, "1") {
			intPart++
		}
		fracDigits = s[strings.IndexByte(s, '.')+1:]
	} else if frac >= 0.5 {
		intPart++
	}

	thousands, decimal := f.Separator.separators()
	out := group(strconv.FormatFloat(intPart, 'f', 0, 64), thousands)
	if decimals > 0 {
		out += decimal + fracDigits
	}
	return pad(signPrefix(neg, f.Sign)+out, f)
}

func coerceNumber(value any) float64 {
	var v float64
	switch x := value.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int32:
		v = float64(x)
	case int64:
		v = float64(x)
	case string:
		s := strings.TrimSpace(x)
		s = strings.ReplaceAll(s, ",", ".")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		v = parsed
	default:
		return 0
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func signPrefix(neg bool, flag byte) string {
	switch {
	case neg:
		return "-"
	case flag == '+':
		return "+"
	case flag == ' ':
		return " "
	}
	return ""
}

// group inserts the thousands separator into a digit run, walking
// base-1000 chunks from the least-significant end.
func group(digits, sep string) string {
	if sep == "" || len(digits) <= 3 {
		return digits
	}
	var chunks []string
	for len(digits) > 3 {
		chunks = append([]string{digits[len(digits)-3:]}, chunks...)
		digits = digits[:len(digits)-3]
	}
	chunks = append([]string{digits}, chunks...)
	return strings.Join(chunks, sep)
}

func pad(s string, f NumberFlags) string {
	if len(s) >= f.Width {
		return s
	}
	n := f.Width - len(s)
	if !f.ZeroPad {
		return strings.Repeat(" ", n) + s
	}
	// Zero padding goes between the sign and the digits.
	if len(s) > 0 && (s[0] == '-' || s[0] == '+' || s[0] == ' ') {
		return s[:1] + strings.Repeat("0", n) + s[1:]
	}
	return strings.Repeat("0", n) + s
}
