package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the YAML form of a schema.
//
//	enums:
//	  SymTag: [Null, Exe, Function]
//	tables:
//	  - name: Functions
//	    description: Function symbols
//	    category: symbols
//	    fields:
//	      - {name: name, type: string, description: Function name}
//	      - {name: tag, type: enum, enum: SymTag}
type Definition struct {
	Enums  map[string][]string `yaml:"enums,omitempty"`
	Tables []TableDef          `yaml:"tables"`
}

// TableDef declares one table.
type TableDef struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Category    string     `yaml:"category,omitempty"`
	Fields      []FieldDef `yaml:"fields"`
}

// FieldDef declares one field.
type FieldDef struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Type        string `yaml:"type"`
	Enum        string `yaml:"enum,omitempty"`
	Length      int    `yaml:"length,omitempty"`
	Key         bool   `yaml:"key,omitempty"`
}

// LoadDefinition reads a YAML schema definition from path.
func LoadDefinition(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %q: %w", path, err)
	}
	s, err := ParseDefinition(data)
	if err != nil {
		return nil, fmt.Errorf("schema: %q: %w", path, err)
	}
	return s, nil
}

// ParseDefinition builds a schema from YAML.
func ParseDefinition(data []byte) (*Schema, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse definition: %w", err)
	}
	return def.Build()
}

// Build converts the definition into a schema without rows.
func (def Definition) Build() (*Schema, error) {
	enums := make(map[string]*Enum, len(def.Enums))
	for name, symbols := range def.Enums {
		enums[name] = NewEnum(name, symbols...)
	}

	tables := make([]Table, 0, len(def.Tables))
	for _, td := range def.Tables {
		t := Table{Name: td.Name, Description: td.Description, Category: td.Category}
		for _, fd := range td.Fields {
			f := Field{
				Name:        fd.Name,
				Description: fd.Description,
				Kind:        NormalizeKind(Kind(fd.Type)),
				Length:      fd.Length,
				Key:         fd.Key,
			}
			if f.Kind == KindEnum {
				e, ok := enums[fd.Enum]
				if !ok {
					return nil, &MismatchError{Table: td.Name, Field: fd.Name, Row: -1, Message: fmt.Sprintf("unknown enum '%s'", fd.Enum)}
				}
				f.Enum = e
			}
			t.Fields = append(t.Fields, f)
		}
		tables = append(tables, t)
	}
	return New(tables...)
}

// Dataset is the record set of one source.
type Dataset struct {
	Source string
	Schema *Schema
}

type datasetFile struct {
	Source string                      `yaml:"source"`
	Tables map[string][]map[string]any `yaml:"tables"`
}

// LoadDataset reads the rows of one source from a YAML file and binds them
// to s. Every row must provide exactly the declared fields.
func LoadDataset(s *Schema, path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read %q: %w", path, err)
	}
	ds, err := ParseDataset(s, data)
	if err != nil {
		return nil, fmt.Errorf("dataset: %q: %w", path, err)
	}
	if ds.Source == "" {
		ds.Source = path
	}
	return ds, nil
}

// ParseDataset decodes YAML rows and binds them to s.
func ParseDataset(s *Schema, data []byte) (*Dataset, error) {
	var file datasetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}

	rows := make(map[string]RowSource, len(file.Tables))
	for name, raw := range file.Tables {
		t, ok := s.Table(name)
		if !ok {
			return nil, &MismatchError{Table: name, Row: -1, Message: "table is not declared in the schema"}
		}
		recs, err := coerceRows(t, raw)
		if err != nil {
			return nil, err
		}
		rows[name] = recs
	}

	bound, err := s.WithRows(rows)
	if err != nil {
		return nil, err
	}
	return &Dataset{Source: file.Source, Schema: bound}, nil
}

func coerceRows(t Table, raw []map[string]any) (Records, error) {
	recs := make(Records, 0, len(raw))
	for i, row := range raw {
		if len(row) != len(t.Fields) {
			for name := range row {
				if !hasField(t, name) {
					return nil, &MismatchError{Table: t.Name, Field: name, Row: i, Message: "field is not declared"}
				}
			}
		}
		rec := make(Record, len(t.Fields))
		for j, f := range t.Fields {
			v, ok := row[f.Name]
			if !ok {
				return nil, &MismatchError{Table: t.Name, Field: f.Name, Row: i, Message: "missing value"}
			}
			c, err := Coerce(f, v)
			if err != nil {
				return nil, &MismatchError{Table: t.Name, Field: f.Name, Row: i, Message: err.Error()}
			}
			rec[j] = c
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func hasField(t Table, name string) bool {
	for _, f := range t.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}
