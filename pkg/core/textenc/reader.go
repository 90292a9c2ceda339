package textenc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedQuote is returned when a quoted value never closes.
var ErrUnterminatedQuote = errors.New("unterminated quoted value")

// SplitRecord splits one line (without its terminator) into raw values,
// removing quotes and resolving escapes. A trailing separator yields a final
// empty value, as written by AppendRecord.
func SplitRecord(line string, sep byte) ([]string, error) {
	var (
		values  []string
		current strings.Builder
		quoted  bool
		closed  bool
	)

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\':
			if i+1 == len(line) {
				current.WriteByte('\\')
				continue
			}
			i++
			current.WriteByte(unescape(line[i]))
		case quoted && c == '"':
			quoted = false
			closed = true
		case quoted:
			current.WriteByte(c)
		case c == sep:
			values = append(values, current.String())
			current.Reset()
			closed = false
		case closed:
			return nil, fmt.Errorf("unexpected %q after closing quote at offset %d", c, i)
		case c == '"' && current.Len() == 0:
			quoted = true
		default:
			current.WriteByte(c)
		}
	}
	if quoted {
		return nil, ErrUnterminatedQuote
	}
	return append(values, current.String()), nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 'r':
		return '\r'
	case 't':
		return '\t'
	case '0':
		return 0
	default:
		return c
	}
}
