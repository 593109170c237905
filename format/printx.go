package format

type caseMode int

const (
	caseKeep caseMode = iota
	caseUpper
	caseLower
)

func (m caseMode) apply(c byte) byte {
	switch m {
	case caseUpper:
		if c >= 'a' && c <= 'z' {
			return c - 'a' + 'A'
		}
	case caseLower:
		if c >= 'A' && c <= 'Z' {
			return c - 'A' + 'a'
		}
	}
	return c
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

// Printx applies the printx case-transform template to source. Each
// template character is a literal, a backslash escape, a case-mode
// switch ('>' upper, '<' lower, '=' as-is) or a character-class
// consumer: '?' takes the next source character, 'A' the next alpha,
// 'X' the next alphanumeric, '9' the next digit and '*' the remainder.
// Class consumers search forward through the source, skipping
// characters that do not match the requested class.
func Printx(template, source string) string {
	out := make([]byte, 0, len(source))
	mode := caseKeep
	i := 0

	consume := func(match func(byte) bool) {
		for i < len(source) {
			c := source[i]
			i++
			if match(c) {
				out = append(out, mode.apply(c))
				return
			}
		}
	}

	for t := 0; t < len(template); t++ {
		switch template[t] {
		case '?':
			if i < len(source) {
				out = append(out, mode.apply(source[i]))
				i++
			}
		case 'A':
			consume(isAlpha)
		case 'X':
			consume(isAlnum)
		case '9':
			consume(isDigit)
		case '*':
			for i < len(source) {
				out = append(out, mode.apply(source[i]))
				i++
			}
		case '>':
			mode = caseUpper
		case '<':
			mode = caseLower
		case '=':
			mode = caseKeep
		case '\\':
			if t+1 < len(template) {
				t++
				out = append(out, template[t])
			}
		default:
			out = append(out, template[t])
		}
	}
	return string(out)
}
