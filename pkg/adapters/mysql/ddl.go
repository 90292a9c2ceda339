package mysql

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ruslano69/symexport/pkg/core/schema"
)

// sourceColumnDef is appended to every ordinary table.
var sourceColumnDef = fmt.Sprintf("%s INT UNSIGNED NOT NULL COMMENT 'id of the source'", quoteIdent(schema.SourceColumn))

// indexPrefix bounds the key length on TEXT columns.
const indexPrefix = 255

// EmitSchema queues DROP and CREATE for every table in declaration order.
// Calling it twice queues the statements twice.
func (b *Backend) EmitSchema(ctx context.Context, s *schema.Schema) error {
	if s == nil {
		return nil
	}
	n := 0
	err := s.ForEachTable(func(t schema.Table) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.batch = append(b.batch, DropTable(t.Name), b.CreateTable(t))
		n++
		return nil
	})
	log.Debug().Int("tables", n).Msg("schema queued")
	return err
}

// declareManifest queues the manifest DDL once per run.
func (b *Backend) declareManifest(m schema.Table) {
	if b.manifestDeclared {
		return
	}
	b.batch = append(b.batch, DropTable(m.Name), b.CreateTable(m))
	b.manifestDeclared = true
}

// DropTable returns the statement removing a table if it exists.
func DropTable(name string) string {
	return "DROP TABLE IF EXISTS " + quoteIdent(name)
}

// CreateTable builds the CREATE TABLE statement for t. Ordinary tables get
// the source id column after their own fields; the manifest already
// declares it.
func (b *Backend) CreateTable(t schema.Table) string {
	columns := make([]string, 0, len(t.Fields)+2)
	var keys []string

	for _, f := range t.Fields {
		columns = append(columns, fmt.Sprintf("%s %s NOT NULL COMMENT %s",
			quoteIdent(f.Name), ColumnType(f), quoteString(f.Description)))
		if f.Key {
			keys = append(keys, keyClause(f))
		}
	}
	if !t.IsManifest() {
		columns = append(columns, sourceColumnDef)
	}
	columns = append(columns, keys...)

	return fmt.Sprintf("CREATE TABLE %s (\n    %s\n) ENGINE=%s COMMENT=%s",
		quoteIdent(t.Name),
		strings.Join(columns, ",\n    "),
		b.settings.Engine,
		quoteString(t.Description))
}

func keyClause(f schema.Field) string {
	col := quoteIdent(f.Name)
	if ColumnType(f) == "TEXT" {
		col = fmt.Sprintf("%s(%d)", col, indexPrefix)
	}
	return fmt.Sprintf("KEY %s (%s)", quoteIdent("ix_"+f.Name), col)
}

// LoadClause is the column list of a LOAD DATA statement plus the SET
// assignments converting staged booleans.
type LoadClause struct {
	Columns []string
	Sets    []string
}

// NewLoadClause lists the columns of t in the order they are staged.
// Booleans go through a user variable because the text "1" does not fit a
// BIT(1) column. The variable is quoted like the column it feeds.
func NewLoadClause(t schema.Table) LoadClause {
	var lc LoadClause
	for _, f := range t.Fields {
		if f.Kind == schema.KindBool {
			v := "@" + quoteIdent(f.Name)
			lc.Columns = append(lc.Columns, v)
			lc.Sets = append(lc.Sets, fmt.Sprintf("%s = CAST(%s AS UNSIGNED)", quoteIdent(f.Name), v))
			continue
		}
		lc.Columns = append(lc.Columns, quoteIdent(f.Name))
	}
	if !t.IsManifest() {
		lc.Columns = append(lc.Columns, quoteIdent(schema.SourceColumn))
	}
	return lc
}

func (lc LoadClause) String() string {
	s := "(" + strings.Join(lc.Columns, ", ") + ")"
	if len(lc.Sets) > 0 {
		s += " SET " + strings.Join(lc.Sets, ", ")
	}
	return s
}

// LoadStatement builds the LOAD DATA statement reading path into t. The
// field conventions match the staging encoder.
func LoadStatement(path string, t schema.Table) string {
	return fmt.Sprintf(
		"LOAD DATA LOCAL INFILE %s INTO TABLE %s FIELDS TERMINATED BY ',' OPTIONALLY ENCLOSED BY '\"' LINES TERMINATED BY '\\n' %s",
		quoteString(filepath.ToSlash(path)), quoteIdent(t.Name), NewLoadClause(t))
}
