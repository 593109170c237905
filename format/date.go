package format

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// FormatError reports a structural mismatch between a date pattern and
// its input. It is raised to the calling script, never swallowed.
type FormatError struct {
	Pattern string
	Reason  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("format %q: %s", e.Pattern, e.Reason)
}

// The three numeric shorthand formats accepted by both FormatDate and
// ParseDate, per the Acrobat printd/scand contract.
var shorthandPatterns = map[string]string{
	"0": "D:yyyymmddHHMMss",
	"1": "yyyy.mm.dd HH:MM:ss",
	"2": "m/d/yy h:MM:ss tt",
}

// Date tokens, longest first so that greedy scanning matches "mmmm"
// before "mm" before "m".
var dateTokens = []string{
	"mmmm", "dddd", "yyyy",
	"mmm", "ddd",
	"mm", "dd", "yy", "HH", "hh", "MM", "ss", "tt",
	"m", "d", "H", "h", "M", "s", "t",
}

// FormatDate expands a printd token pattern against the fields of t.
// Backslash-escaped characters pass through as their character code,
// matching the historical printd behavior documents depend on.
func FormatDate(pattern string, t time.Time) string {
	if p, ok := shorthandPatterns[pattern]; ok {
		pattern = p
	}
	var b strings.Builder
	for i := 0; i < len(pattern); {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			b.WriteString(strconv.Itoa(int(pattern[i+1])))
			i += 2
			continue
		}
		tok := matchToken(pattern[i:])
		if tok == "" {
			b.WriteByte(pattern[i])
			i++
			continue
		}
		b.WriteString(expandToken(tok, t))
		i += len(tok)
	}
	return b.String()
}

func matchToken(s string) string {
	for _, tok := range dateTokens {
		if strings.HasPrefix(s, tok) {
			return tok
		}
	}
	return ""
}

func expandToken(tok string, t time.Time) string {
	hour12 := t.Hour() % 12
	if hour12 == 0 {
		hour12 = 12
	}
	switch tok {
	case "yyyy":
		return fmt.Sprintf("%04d", t.Year())
	case "yy":
		return fmt.Sprintf("%02d", t.Year()%100)
	case "mmmm":
		return t.Month().String()
	case "mmm":
		return t.Month().String()[:3]
	case "mm":
		return fmt.Sprintf("%02d", int(t.Month()))
	case "m":
		return strconv.Itoa(int(t.Month()))
	case "dddd":
		return t.Weekday().String()
	case "ddd":
		return t.Weekday().String()[:3]
	case "dd":
		return fmt.Sprintf("%02d", t.Day())
	case "d":
		return strconv.Itoa(t.Day())
	case "HH":
		return fmt.Sprintf("%02d", t.Hour())
	case "H":
		return strconv.Itoa(t.Hour())
	case "hh":
		return fmt.Sprintf("%02d", hour12)
	case "h":
		return strconv.Itoa(hour12)
	case "MM":
		return fmt.Sprintf("%02d", t.Minute())
	case "M":
		return strconv.Itoa(t.Minute())
	case "ss":
		return fmt.Sprintf("%02d", t.Second())
	case "s":
		return strconv.Itoa(t.Second())
	case "tt":
		if t.Hour() < 12 {
			return "am"
		}
		return "pm"
	case "t":
		if t.Hour() < 12 {
			return "a"
		}
		return "p"
	}
	return tok
}

// dateRecord is the scratch record the compiled extraction actions
// write into, one action per capturing group.
type dateRecord struct {
	year, month, day        int
	hours, minutes, seconds int
	am                      bool
	hasAMPM                 bool
}

type captureAction func(rec *dateRecord, group string) error

type compiledDateParser struct {
	re      *regexp2.Regexp
	actions []captureAction
}

var dateParserCache sync.Map // pattern string -> *compiledDateParser

// compileDateParser turns a printd/scand pattern into an anchored
// regular expression plus the ordered list of extraction actions for
// its capturing groups. Compiled parsers are cached by pattern string.
//
// The regexp2 engine is used deliberately: it shares ECMAScript
// matching semantics with the script runtime, so scand behaves the
// same whether a document script or the host invokes it.
func compileDateParser(pattern string) (*compiledDateParser, error) {
	if cached, ok := dateParserCache.Load(pattern); ok {
		return cached.(*compiledDateParser), nil
	}

	var src strings.Builder
	src.WriteString(`^`)
	var actions []captureAction
	for i := 0; i < len(pattern); {
		if pattern[i] == '\\' && i+1 < len(pattern) {
			src.WriteString(regexp2.Escape(string(pattern[i+1])))
			i += 2
			continue
		}
		tok := matchToken(pattern[i:])
		if tok == "" {
			src.WriteString(regexp2.Escape(string(pattern[i])))
			i++
			continue
		}
		group, action := tokenCapture(tok)
		src.WriteString(group)
		if action != nil {
			actions = append(actions, action)
		}
		i += len(tok)
	}
	src.WriteString(`$`)

	re, err := regexp2.Compile(src.String(), regexp2.ECMAScript)
	if err != nil {
		return nil, &FormatError{Pattern: pattern, Reason: "uncompilable pattern: " + err.Error()}
	}
	parser := &compiledDateParser{re: re, actions: actions}
	dateParserCache.Store(pattern, parser)
	return parser, nil
}

func tokenCapture(tok string) (string, captureAction) {
	num := func(dst func(rec *dateRecord, n int)) captureAction {
		return func(rec *dateRecord, group string) error {
			n, err := strconv.Atoi(group)
			if err != nil {
				return err
			}
			dst(rec, n)
			return nil
		}
	}
	switch tok {
	case "yyyy":
		return `(\d{4})`, num(func(r *dateRecord, n int) { r.year = n })
	case "yy":
		return `(\d{2})`, num(func(r *dateRecord, n int) { r.year = 2000 + n })
	case "mm", "m":
		return `(\d{1,2})`, num(func(r *dateRecord, n int) { r.month = n - 1 })
	case "mmm", "mmmm":
		return `([A-Za-z]+)`, func(r *dateRecord, group string) error {
			m, ok := monthByName(group)
			if !ok {
				return fmt.Errorf("unknown month name %q", group)
			}
			r.month = m
			return nil
		}
	case "dd", "d":
		return `(\d{1,2})`, num(func(r *dateRecord, n int) { r.day = n })
	case "ddd", "dddd":
		// Weekday names carry no date information; match and drop.
		return `(?:[A-Za-z]+)`, nil
	case "HH", "H", "hh", "h":
		return `(\d{1,2})`, num(func(r *dateRecord, n int) { r.hours = n })
	case "MM", "M":
		return `(\d{1,2})`, num(func(r *dateRecord, n int) { r.minutes = n })
	case "ss", "s":
		return `(\d{1,2})`, num(func(r *dateRecord, n int) { r.seconds = n })
	case "tt", "t":
		return `([aApP][mM]?)`, func(r *dateRecord, group string) error {
			r.hasAMPM = true
			r.am = group[0] == 'a' || group[0] == 'A'
			return nil
		}
	}
	return regexp2.Escape(tok), nil
}

func monthByName(name string) (int, bool) {
	for m := time.January; m <= time.December; m++ {
		full := m.String()
		if strings.EqualFold(name, full) || strings.EqualFold(name, full[:3]) {
			return int(m) - 1, true
		}
	}
	return 0, false
}

// ParseDate runs the compiled parser for pattern against text and
// reconstructs a calendar date. The number of captured groups must
// match the number of registered extraction actions; any mismatch is a
// *FormatError. The same "0"/"1"/"2" shorthands as FormatDate apply.
//
// Fields the pattern does not mention default to 1970-01-01 00:00:00.
// When an AM/PM token is present the 12-hour value is normalized to
// 24-hour time.
func ParseDate(pattern, text string) (time.Time, error) {
	if p, ok := shorthandPatterns[pattern]; ok {
		pattern = p
	}
	parser, err := compileDateParser(pattern)
	if err != nil {
		return time.Time{}, err
	}

	m, err := parser.re.FindStringMatch(text)
	if err != nil {
		return time.Time{}, &FormatError{Pattern: pattern, Reason: "match failed: " + err.Error()}
	}
	if m == nil {
		return time.Time{}, &FormatError{Pattern: pattern, Reason: fmt.Sprintf("input %q does not match", text)}
	}
	groups := m.Groups()[1:] // group 0 is the whole match
	if len(groups) != len(parser.actions) {
		return time.Time{}, &FormatError{
			Pattern: pattern,
			Reason:  fmt.Sprintf("captured %d groups, expected %d", len(groups), len(parser.actions)),
		}
	}

	rec := dateRecord{year: 1970, month: 0, day: 1}
	for i, action := range parser.actions {
		if err := action(&rec, groups[i].String()); err != nil {
			return time.Time{}, &FormatError{Pattern: pattern, Reason: err.Error()}
		}
	}
	if rec.hasAMPM {
		if !rec.am && rec.hours < 12 {
			rec.hours += 12
		} else if rec.am && rec.hours == 12 {
			rec.hours = 0
		}
	}
	return time.Date(rec.year, time.Month(rec.month+1), rec.day,
		rec.hours, rec.minutes, rec.seconds, 0, time.UTC), nil
}
