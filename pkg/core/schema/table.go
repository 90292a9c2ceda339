package schema

import (
	"fmt"
)

// RowSource yields the rows of a table in a stable order.
type RowSource interface {
	Len() int
	Each(fn func(Record) error) error
}

// Records is a RowSource over pre-built records.
type Records []Record

// Len returns the number of records.
func (r Records) Len() int { return len(r) }

// Each calls fn for every record in order and stops at the first error.
func (r Records) Each(fn func(Record) error) error {
	for _, rec := range r {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Table is one named, ordered list of fields plus its rows.
type Table struct {
	Name        string
	Description string
	Category    string
	Fields      []Field
	Rows        RowSource
}

// RowCount returns the number of rows, zero when the table has no source.
func (t Table) RowCount() int {
	if t.Rows == nil {
		return 0
	}
	return t.Rows.Len()
}

// EachRow iterates the rows, doing nothing when the table has no source.
func (t Table) EachRow(fn func(Record) error) error {
	if t.Rows == nil {
		return nil
	}
	return t.Rows.Each(fn)
}

// IsManifest reports whether t is the synthetic source manifest.
func (t Table) IsManifest() bool { return t.Name == ManifestTable }

// ColumnNames returns the field names in declaration order.
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		names[i] = f.Name
	}
	return names
}

// ManifestFields are the columns of the source manifest table.
func ManifestFields() []Field {
	return []Field{
		{Name: SourceColumn, Description: "id of the source", Kind: KindUint32},
		{Name: SourceNameColumn, Description: "name of the source", Kind: KindString},
	}
}

// Manifest builds the source manifest table. Ids start at 1 and follow the
// order of sources.
func Manifest(sources []string) Table {
	rows := make(Records, len(sources))
	for i, name := range sources {
		rows[i] = Record{uint32(i + 1), name}
	}
	return Table{
		Name:        ManifestTable,
		Description: ManifestDescription,
		Fields:      ManifestFields(),
		Rows:        rows,
	}
}

// Schema is the ordered set of exported tables.
type Schema struct {
	tables []Table
	index  map[string]int
}

// New builds a schema from tables in declaration order.
func New(tables ...Table) (*Schema, error) {
	s := &Schema{
		tables: make([]Table, 0, len(tables)),
		index:  make(map[string]int, len(tables)),
	}
	for _, t := range tables {
		if err := ValidateDefinition(t); err != nil {
			return nil, err
		}
		if t.IsManifest() {
			return nil, &MismatchError{Table: t.Name, Row: -1, Message: "name is reserved for the source manifest"}
		}
		if _, dup := s.index[t.Name]; dup {
			return nil, &MismatchError{Table: t.Name, Row: -1, Message: "duplicate table name"}
		}
		s.index[t.Name] = len(s.tables)
		s.tables = append(s.tables, t)
	}
	return s, nil
}

// MustNew is New that panics on error. Use it only for schemas built in code.
func MustNew(tables ...Table) *Schema {
	s, err := New(tables...)
	if err != nil {
		panic(fmt.Sprintf("invalid schema: %v", err))
	}
	return s
}

// ForEachTable visits the tables in declaration order and stops at the first error.
func (s *Schema) ForEachTable(fn func(Table) error) error {
	for _, t := range s.tables {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

// Tables returns a copy of the tables in declaration order.
func (s *Schema) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)
	return out
}

// Table looks a table up by name.
func (s *Schema) Table(name string) (Table, bool) {
	i, ok := s.index[name]
	if !ok {
		return Table{}, false
	}
	return s.tables[i], true
}

// Len returns the number of tables.
func (s *Schema) Len() int { return len(s.tables) }

// WithRows returns a copy of the schema whose tables read from rows. Tables
// absent from rows get no rows. Unknown table names are rejected.
func (s *Schema) WithRows(rows map[string]RowSource) (*Schema, error) {
	for name := range rows {
		if _, ok := s.index[name]; !ok {
			return nil, &MismatchError{Table: name, Row: -1, Message: "table is not declared in the schema"}
		}
	}
	out := &Schema{tables: make([]Table, len(s.tables)), index: s.index}
	for i, t := range s.tables {
		t.Rows = rows[t.Name]
		out.tables[i] = t
	}
	return out, nil
}
