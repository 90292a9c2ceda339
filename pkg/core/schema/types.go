package schema

import (
	"fmt"
	"slices"
	"strings"
)

// Kind is the storage type of a field.
type Kind string

// Supported field kinds.
const (
	KindInt8    Kind = "int8"
	KindInt16   Kind = "int16"
	KindInt32   Kind = "int32"
	KindInt64   Kind = "int64"
	KindUint8   Kind = "uint8"
	KindUint16  Kind = "uint16"
	KindUint32  Kind = "uint32"
	KindUint64  Kind = "uint64"
	KindFloat32 Kind = "float32"
	KindFloat64 Kind = "float64"
	KindBool    Kind = "bool"
	KindString  Kind = "string"
	KindEnum    Kind = "enum"
	KindAddress Kind = "address"
)

// Names of the reserved source columns and of the manifest table.
const (
	SourceColumn        = "pdbid"
	SourceNameColumn    = "filename"
	ManifestTable       = SourceColumn
	ManifestDescription = "Assignment of sources to their ids"
)

// NormalizeKind resolves common synonyms to a canonical kind.
func NormalizeKind(k Kind) Kind {
	switch Kind(strings.ToLower(string(k))) {
	case "int", "integer":
		return KindInt32
	case "long", "bigint":
		return KindInt64
	case "uint", "unsigned":
		return KindUint32
	case "ulong":
		return KindUint64
	case "float", "real":
		return KindFloat32
	case "double":
		return KindFloat64
	case "boolean":
		return KindBool
	case "text", "varchar":
		return KindString
	case "addr", "address_info":
		return KindAddress
	default:
		return Kind(strings.ToLower(string(k)))
	}
}

// IsValidKind reports whether k is one of the supported kinds.
func IsValidKind(k Kind) bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64,
		KindFloat32, KindFloat64, KindBool, KindString, KindEnum, KindAddress:
		return true
	default:
		return false
	}
}

// IsUnsigned reports whether k holds an unsigned integer.
func IsUnsigned(k Kind) bool {
	switch k {
	case KindUint8, KindUint16, KindUint32, KindUint64, KindAddress:
		return true
	default:
		return false
	}
}

// IsInteger reports whether k holds a signed or unsigned integer.
func IsInteger(k Kind) bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	default:
		return false
	}
}

// Field describes one column. Order inside a table is the column order.
type Field struct {
	Name        string
	Description string
	Kind        Kind
	Enum        *Enum // set only for KindEnum
	Length      int   // optional VARCHAR length for strings, 0 means TEXT
	Key         bool  // request a secondary index
}

// Enum is a closed set of named symbols.
type Enum struct {
	Name    string
	Symbols []string
}

// NewEnum creates an enumeration with the given symbols in declaration order.
func NewEnum(name string, symbols ...string) *Enum {
	return &Enum{Name: name, Symbols: symbols}
}

// Has reports whether symbol belongs to the enumeration.
func (e *Enum) Has(symbol string) bool {
	if e == nil {
		return false
	}
	return slices.Contains(e.Symbols, symbol)
}

// Symbol is an enumeration value given by name.
type Symbol string

func (s Symbol) String() string { return string(s) }

// Address is a composite location reference. Only RV is exported.
type Address struct {
	Section uint16
	Offset  uint32
	RV      uint32
}

// Record holds the values of one row in field declaration order.
type Record []any

// MismatchError reports a row that disagrees with its table's declared fields.
type MismatchError struct {
	Table   string
	Field   string
	Row     int // -1 when not tied to a row
	Message string
}

func (e *MismatchError) Error() string {
	switch {
	case e.Field == "" && e.Row < 0:
		return fmt.Sprintf("schema mismatch in table '%s': %s", e.Table, e.Message)
	case e.Field == "":
		return fmt.Sprintf("schema mismatch in table '%s' row %d: %s", e.Table, e.Row, e.Message)
	case e.Row < 0:
		return fmt.Sprintf("schema mismatch in table '%s' field '%s': %s", e.Table, e.Field, e.Message)
	default:
		return fmt.Sprintf("schema mismatch in table '%s' row %d field '%s': %s", e.Table, e.Row, e.Field, e.Message)
	}
}
