package schema

import (
	"fmt"
	"math"
)

// Coerce converts a loosely typed value, as produced by a YAML decoder, to
// the Go type declared by field.
func Coerce(field Field, raw any) (any, error) {
	switch field.Kind {
	case KindInt8:
		n, err := signed(raw, math.MinInt8, math.MaxInt8)
		return int8(n), err
	case KindInt16:
		n, err := signed(raw, math.MinInt16, math.MaxInt16)
		return int16(n), err
	case KindInt32:
		n, err := signed(raw, math.MinInt32, math.MaxInt32)
		return int32(n), err
	case KindInt64:
		return signed(raw, math.MinInt64, math.MaxInt64)
	case KindUint8:
		n, err := unsigned(raw, math.MaxUint8)
		return uint8(n), err
	case KindUint16:
		n, err := unsigned(raw, math.MaxUint16)
		return uint16(n), err
	case KindUint32:
		n, err := unsigned(raw, math.MaxUint32)
		return uint32(n), err
	case KindUint64:
		return unsigned(raw, math.MaxUint64)
	case KindFloat32:
		f, err := float(raw)
		return float32(f), err
	case KindFloat64:
		return float(raw)
	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", raw)
		}
		return b, nil
	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", raw)
		}
		return s, nil
	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected enum symbol, got %T", raw)
		}
		if !field.Enum.Has(s) {
			return nil, fmt.Errorf("symbol '%s' is not part of enum '%s'", s, field.Enum.Name)
		}
		return Symbol(s), nil
	case KindAddress:
		return address(raw)
	default:
		return nil, fmt.Errorf("unsupported kind '%s'", field.Kind)
	}
}

func signed(raw any, lo, hi int64) (int64, error) {
	var n int64
	switch v := raw.(type) {
	case int:
		n = int64(v)
	case int64:
		n = v
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d out of range", v)
		}
		n = int64(v)
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("value %d out of range [%d, %d]", n, lo, hi)
	}
	return n, nil
}

func unsigned(raw any, hi uint64) (uint64, error) {
	var n uint64
	switch v := raw.(type) {
	case int:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", v)
		}
		n = uint64(v)
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", v)
		}
		n = uint64(v)
	case uint64:
		n = v
	default:
		return 0, fmt.Errorf("expected integer, got %T", raw)
	}
	if n > hi {
		return 0, fmt.Errorf("value %d out of range [0, %d]", n, hi)
	}
	return n, nil
}

func float(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
}

// address accepts either the bare relative value or a mapping with
// section, offset and rv keys.
func address(raw any) (Address, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		rv, err := unsigned(raw, math.MaxUint32)
		return Address{RV: uint32(rv)}, err
	}

	var a Address
	for k, v := range m {
		switch k {
		case "section":
			n, err := unsigned(v, math.MaxUint16)
			if err != nil {
				return a, fmt.Errorf("section: %w", err)
			}
			a.Section = uint16(n)
		case "offset":
			n, err := unsigned(v, math.MaxUint32)
			if err != nil {
				return a, fmt.Errorf("offset: %w", err)
			}
			a.Offset = uint32(n)
		case "rv":
			n, err := unsigned(v, math.MaxUint32)
			if err != nil {
				return a, fmt.Errorf("rv: %w", err)
			}
			a.RV = uint32(n)
		default:
			return a, fmt.Errorf("unknown address key '%s'", k)
		}
	}
	return a, nil
}
