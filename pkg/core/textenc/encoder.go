// Package textenc serializes typed field values into delimited text.
//
// Strings and enum symbols are double-quoted. Inside quotes a backslash
// escapes itself, the quote, the active separator and the line control
// characters, which is the convention MySQL's LOAD DATA reads by default.
// SplitRecord reverses the encoding.
package textenc

import (
	"fmt"
	"math"
	"strconv"

	"github.com/ruslano69/symexport/pkg/core/schema"
)

// BoolMode selects how booleans are written.
type BoolMode int

const (
	// BoolWords writes TRUE and FALSE.
	BoolWords BoolMode = iota
	// BoolBits writes 1 and 0.
	BoolBits
)

func (m BoolMode) String() string {
	switch m {
	case BoolWords:
		return "words"
	case BoolBits:
		return "bits"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

// ParseBoolMode accepts "words" (the default for an empty string) or "bits".
func ParseBoolMode(s string) (BoolMode, error) {
	switch s {
	case "", "words", "TRUE/FALSE":
		return BoolWords, nil
	case "bits", "bit", "0/1":
		return BoolBits, nil
	default:
		return BoolWords, fmt.Errorf("unknown boolean encoding %q (want words or bits)", s)
	}
}

// DefaultSeparator is used when no separator is configured.
const DefaultSeparator = ','

// Options configures an Encoder. It is fixed for the encoder's lifetime.
type Options struct {
	Separator byte
	Bools     BoolMode
}

// Encoder turns values into escaped text. It holds no mutable state.
type Encoder struct {
	opts Options
}

// New creates an encoder. A zero separator means DefaultSeparator.
func New(opts Options) *Encoder {
	if opts.Separator == 0 {
		opts.Separator = DefaultSeparator
	}
	return &Encoder{opts: opts}
}

// Separator returns the active field separator.
func (e *Encoder) Separator() byte { return e.opts.Separator }

// Options returns the encoder configuration.
func (e *Encoder) Options() Options { return e.opts }

// AppendValue appends v followed by the separator.
func (e *Encoder) AppendValue(buf []byte, f schema.Field, v any) ([]byte, error) {
	buf, err := e.AppendScalar(buf, f, v)
	if err != nil {
		return buf, err
	}
	return append(buf, e.opts.Separator), nil
}

// AppendScalar appends v without a trailing separator.
func (e *Encoder) AppendScalar(buf []byte, f schema.Field, v any) ([]byte, error) {
	switch f.Kind {
	case schema.KindEnum:
		sym, ok := schema.SymbolOf(v)
		if !ok {
			return buf, mismatch(f, v)
		}
		return e.AppendString(buf, sym), nil
	case schema.KindAddress:
		a, ok := v.(schema.Address)
		if !ok {
			return buf, mismatch(f, v)
		}
		return strconv.AppendUint(buf, uint64(a.RV), 10), nil
	}

	switch x := v.(type) {
	case int8:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case int16:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case int32:
		return strconv.AppendInt(buf, int64(x), 10), nil
	case int64:
		return strconv.AppendInt(buf, x, 10), nil
	case uint8:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint16:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint32:
		return strconv.AppendUint(buf, uint64(x), 10), nil
	case uint64:
		return strconv.AppendUint(buf, x, 10), nil
	case float32:
		if !finite(float64(x)) {
			return buf, nonFinite(f, float64(x))
		}
		return strconv.AppendFloat(buf, float64(x), 'g', -1, 32), nil
	case float64:
		if !finite(x) {
			return buf, nonFinite(f, x)
		}
		return strconv.AppendFloat(buf, x, 'g', -1, 64), nil
	case bool:
		return e.appendBool(buf, x), nil
	case string:
		return e.AppendString(buf, x), nil
	default:
		return buf, mismatch(f, v)
	}
}

// AppendRecord appends every value of rec, each followed by the separator.
func (e *Encoder) AppendRecord(buf []byte, fields []schema.Field, rec schema.Record) ([]byte, error) {
	if len(rec) != len(fields) {
		return buf, fmt.Errorf("record has %d values but %d fields are declared", len(rec), len(fields))
	}
	var err error
	for i, f := range fields {
		if buf, err = e.AppendValue(buf, f, rec[i]); err != nil {
			return buf, err
		}
	}
	return buf, nil
}

// AppendJoined appends the values of rec separated, without a trailing separator.
func (e *Encoder) AppendJoined(buf []byte, fields []schema.Field, rec schema.Record) ([]byte, error) {
	if len(rec) != len(fields) {
		return buf, fmt.Errorf("record has %d values but %d fields are declared", len(rec), len(fields))
	}
	var err error
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, e.opts.Separator)
		}
		if buf, err = e.AppendScalar(buf, f, rec[i]); err != nil {
			return buf, err
		}
	}
	return buf, nil
}

// AppendString appends s quoted and escaped.
func (e *Encoder) AppendString(buf []byte, s string) []byte {
	buf = append(buf, '"')
	buf = AppendEscaped(buf, s, e.opts.Separator)
	return append(buf, '"')
}

func (e *Encoder) appendBool(buf []byte, b bool) []byte {
	if e.opts.Bools == BoolBits {
		if b {
			return append(buf, '1')
		}
		return append(buf, '0')
	}
	if b {
		return append(buf, "TRUE"...)
	}
	return append(buf, "FALSE"...)
}

// AppendEscaped appends s with backslash, quote, sep and line control
// characters escaped. Backslash goes first so escapes are not doubled.
func AppendEscaped(buf []byte, s string, sep byte) []byte {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case '\\', '"':
			buf = append(buf, '\\', c)
		case '\n':
			buf = append(buf, '\\', 'n')
		case '\r':
			buf = append(buf, '\\', 'r')
		case 0:
			buf = append(buf, '\\', '0')
		default:
			if c == sep {
				buf = append(buf, '\\', c)
			} else {
				buf = append(buf, c)
			}
		}
	}
	return buf
}

func mismatch(f schema.Field, v any) error {
	return &schema.MismatchError{
		Field:   f.Name,
		Row:     -1,
		Message: fmt.Sprintf("cannot encode %T as %s", v, f.Kind),
	}
}

// NaN and the infinities have no text form a LOAD DATA import accepts.
func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func nonFinite(f schema.Field, x float64) error {
	return &schema.MismatchError{
		Field:   f.Name,
		Row:     -1,
		Message: fmt.Sprintf("non-finite value %v", x),
	}
}
