package schema

import (
	"fmt"
)

// ValidateDefinition checks the field list of a table.
func ValidateDefinition(t Table) error {
	if t.Name == "" {
		return &MismatchError{Row: -1, Message: "table has empty name"}
	}
	if len(t.Fields) == 0 {
		return &MismatchError{Table: t.Name, Row: -1, Message: "table must have at least one field"}
	}

	seen := make(map[string]bool, len(t.Fields))
	for i, f := range t.Fields {
		if f.Name == "" {
			return &MismatchError{Table: t.Name, Row: -1, Message: fmt.Sprintf("field at index %d has empty name", i)}
		}
		if seen[f.Name] {
			return &MismatchError{Table: t.Name, Field: f.Name, Row: -1, Message: "duplicate field name"}
		}
		seen[f.Name] = true

		// The source id column is appended to every ordinary table.
		if f.Name == SourceColumn && !t.IsManifest() {
			return &MismatchError{Table: t.Name, Field: f.Name, Row: -1, Message: "field name is reserved for the source id column"}
		}
		if !IsValidKind(f.Kind) {
			return &MismatchError{Table: t.Name, Field: f.Name, Row: -1, Message: fmt.Sprintf("invalid kind '%s'", f.Kind)}
		}
		if f.Kind == KindEnum && (f.Enum == nil || len(f.Enum.Symbols) == 0) {
			return &MismatchError{Table: t.Name, Field: f.Name, Row: -1, Message: "enum field has no symbols"}
		}
		if f.Length < 0 {
			return &MismatchError{Table: t.Name, Field: f.Name, Row: -1, Message: "length must not be negative"}
		}
	}
	return nil
}

// Check verifies that v has the Go type declared by field. The returned
// message is empty when v matches.
func Check(field Field, v any) string {
	ok := false
	switch field.Kind {
	case KindInt8:
		_, ok = v.(int8)
	case KindInt16:
		_, ok = v.(int16)
	case KindInt32:
		_, ok = v.(int32)
	case KindInt64:
		_, ok = v.(int64)
	case KindUint8:
		_, ok = v.(uint8)
	case KindUint16:
		_, ok = v.(uint16)
	case KindUint32:
		_, ok = v.(uint32)
	case KindUint64:
		_, ok = v.(uint64)
	case KindFloat32:
		_, ok = v.(float32)
	case KindFloat64:
		_, ok = v.(float64)
	case KindBool:
		_, ok = v.(bool)
	case KindString:
		_, ok = v.(string)
	case KindAddress:
		_, ok = v.(Address)
	case KindEnum:
		sym, isSym := SymbolOf(v)
		if !isSym {
			break
		}
		if !field.Enum.Has(sym) {
			return fmt.Sprintf("symbol '%s' is not part of enum '%s'", sym, field.Enum.Name)
		}
		return ""
	default:
		return fmt.Sprintf("unsupported kind '%s'", field.Kind)
	}
	if !ok {
		return fmt.Sprintf("expected %s, got %T", field.Kind, v)
	}
	return ""
}

// SymbolOf extracts the symbolic name of an enum value.
func SymbolOf(v any) (string, bool) {
	switch s := v.(type) {
	case Symbol:
		return string(s), true
	case fmt.Stringer:
		return s.String(), true
	default:
		return "", false
	}
}

// ValidateRecord checks one record against the table's fields.
func ValidateRecord(t Table, row int, rec Record) error {
	if len(rec) != len(t.Fields) {
		return &MismatchError{
			Table:   t.Name,
			Row:     row,
			Message: fmt.Sprintf("row has %d values but table has %d fields", len(rec), len(t.Fields)),
		}
	}
	for i, f := range t.Fields {
		if msg := Check(f, rec[i]); msg != "" {
			return &MismatchError{Table: t.Name, Field: f.Name, Row: row, Message: msg}
		}
	}
	return nil
}

// ValidateTable checks the definition and every row of t.
func ValidateTable(t Table) error {
	if err := ValidateDefinition(t); err != nil {
		return err
	}
	row := 0
	return t.EachRow(func(rec Record) error {
		err := ValidateRecord(t, row, rec)
		row++
		return err
	})
}
