package mysql

import (
	"fmt"
	"strings"

	"github.com/ruslano69/symexport/pkg/core/schema"
)

// maxVarchar is the longest VARCHAR emitted; longer strings become TEXT.
const maxVarchar = 16383

// ColumnType converts a field kind to its MySQL column type.
func ColumnType(field schema.Field) string {
	switch field.Kind {
	// Integers
	case schema.KindInt8:
		return "TINYINT"
	case schema.KindInt16:
		return "SMALLINT"
	case schema.KindInt32:
		return "INT"
	case schema.KindInt64:
		return "BIGINT"
	case schema.KindUint8:
		return "TINYINT UNSIGNED"
	case schema.KindUint16:
		return "SMALLINT UNSIGNED"
	case schema.KindUint32, schema.KindAddress:
		return "INT UNSIGNED"
	case schema.KindUint64:
		return "BIGINT UNSIGNED"

	// Floating point
	case schema.KindFloat32:
		return "FLOAT"
	case schema.KindFloat64:
		return "DOUBLE"

	// Loaded through a user variable, see NewLoadClause.
	case schema.KindBool:
		return "BIT(1)"

	case schema.KindString:
		if field.Length > 0 && field.Length <= maxVarchar {
			return fmt.Sprintf("VARCHAR(%d)", field.Length)
		}
		return "TEXT"

	case schema.KindEnum:
		symbols := make([]string, 0, len(field.Enum.Symbols))
		for _, s := range field.Enum.Symbols {
			symbols = append(symbols, quoteString(s))
		}
		return "ENUM(" + strings.Join(symbols, ",") + ")"

	default:
		return "TEXT"
	}
}

// quoteIdent wraps a table or column name in backticks.
func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// quoteString produces a single-quoted literal. Quotes are doubled and
// backslashes escaped so the literal survives the default sql_mode.
func quoteString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
