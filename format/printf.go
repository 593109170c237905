package format

import (
	"strconv"
	"strings"
	"sync"
)

// A printf pattern compiles into alternating literal runs and
// directives; compiled patterns are cached by the literal format
// string.
type printfDirective struct {
	literal string // emitted verbatim when conv == 0
	conv    byte   // 'd', 'f', 's' or 'x'
	flags   NumberFlags
	prec    int // -1 when unspecified
}

var printfCache sync.Map // pattern string -> []printfDirective

// Printf renders the % directive mini-language used by util.printf:
// %[,style][+ 0][width][.precision]conv with conv one of d, f, s, x.
// The ,style digit selects one of the separator presets; %% emits a
// literal percent. Directives beyond the supplied arguments render as
// empty strings.
func Printf(pattern string, args ...any) string {
	directives := compilePrintf(pattern)
	var b strings.Builder
	argi := 0
	for _, d := range directives {
		if d.conv == 0 {
			b.WriteString(d.literal)
			continue
		}
		if argi >= len(args) {
			continue
		}
		arg := args[argi]
		argi++
		switch d.conv {
		case 's':
			b.WriteString(padString(argString(arg), d.flags))
		case 'd':
			b.WriteString(FormatNumber(arg, 0, d.flags))
		case 'x':
			f := d.flags
			f.Hex = true
			b.WriteString(FormatNumber(arg, 0, f))
		case 'f':
			if d.prec >= 0 {
				b.WriteString(FormatNumber(arg, d.prec, d.flags))
			} else {
				b.WriteString(formatNatural(arg, d.flags))
			}
		}
	}
	return b.String()
}

func compilePrintf(pattern string) []printfDirective {
	if cached, ok := printfCache.Load(pattern); ok {
		return cached.([]printfDirective)
	}
	var out []printfDirective
	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			out = append(out, printfDirective{literal: literal.String()})
			literal.Reset()
		}
	}
	for i := 0; i < len(pattern); {
		c := pattern[i]
		if c != '%' {
			literal.WriteByte(c)
			i++
			continue
		}
		if i+1 < len(pattern) && pattern[i+1] == '%' {
			literal.WriteByte('%')
			i += 2
			continue
		}
		d, next, ok := parseDirective(pattern, i+1)
		if !ok {
			literal.WriteByte('%')
			i++
			continue
		}
		flush()
		out = append(out, d)
		i = next
	}
	flush()
	printfCache.Store(pattern, out)
	return out
}

func parseDirective(pattern string, i int) (printfDirective, int, bool) {
	d := printfDirective{prec: -1}
	if i < len(pattern) && pattern[i] == ',' {
		i++
		if i >= len(pattern) || pattern[i] < '0' || pattern[i] > '4' {
			return d, 0, false
		}
		d.flags.Separator = SeparatorStyle(pattern[i] - '0')
		i++
	}
	for i < len(pattern) {
		switch pattern[i] {
		case '+', ' ':
			d.flags.Sign = pattern[i]
		case '0':
			d.flags.ZeroPad = true
		default:
			goto width
		}
		i++
	}
width:
	start := i
	for i < len(pattern) && pattern[i] >= '0' && pattern[i] <= '9' {
		i++
	}
	if i > start {
		d.flags.Width, _ = strconv.Atoi(pattern[start:i])
	}
	if i < len(pattern) && pattern[i] == '.' {
		i++
		start = i
		for i < len(pattern) && pattern[i] >= '0' && pattern[i] <= '9' {
			i++
		}
		if i > start {
			d.prec, _ = strconv.Atoi(pattern[start:i])
		} else {
			d.prec = 0
		}
	}
	if i >= len(pattern) {
		return d, 0, false
	}
	switch pattern[i] {
	case 'd', 'f', 's', 'x':
		d.conv = pattern[i]
		return d, i + 1, true
	}
	return d, 0, false
}

func argString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return sprint(v)
}

func sprint(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	}
	return ""
}

func padString(s string, f NumberFlags) string {
	if len(s) >= f.Width {
		return s
	}
	return strings.Repeat(" ", f.Width-len(s)) + s
}

// formatNatural renders a float with its natural decimal digits but
// the requested separators and sign flags.
func formatNatural(v any, f NumberFlags) string {
	x := coerceNumber(v)
	neg := x < 0
	s := strconv.FormatFloat(x, 'f', -1, 64)
	s = strings.TrimPrefix(s, "-")
	intDigits, frac, _ := strings.Cut(s, ".")
	thousands, decimal := f.Separator.separators()
	out := group(intDigits, thousands)
	if frac != "" {
		out += decimal + frac
	}
	return pad(signPrefix(neg, f.Sign)+out, f)
}
