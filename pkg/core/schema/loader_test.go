package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const testDefinition = `
enums:
  SymTag: [Null, Exe, Function]
tables:
  - name: Functions
    description: Function symbols
    category: symbols
    fields:
      - {name: name, type: string, description: Function name}
      - {name: size, type: uint32}
      - {name: tag, type: enum, enum: SymTag}
      - {name: addr, type: address}
      - {name: inlined, type: bool}
  - name: Modules
    fields:
      - {name: path, type: text, length: 260}
      - {name: age, type: int}
`

func TestParseDefinition(t *testing.T) {
	s, err := ParseDefinition([]byte(testDefinition))
	if err != nil {
		t.Fatalf("ParseDefinition() error = %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}

	fn, ok := s.Table("Functions")
	if !ok {
		t.Fatal("Functions table missing")
	}
	if fn.Category != "symbols" || fn.Description != "Function symbols" {
		t.Errorf("unexpected table metadata %+v", fn)
	}
	if fn.Fields[2].Kind != KindEnum || fn.Fields[2].Enum == nil || fn.Fields[2].Enum.Name != "SymTag" {
		t.Errorf("tag field not bound to enum: %+v", fn.Fields[2])
	}

	mod, _ := s.Table("Modules")
	if mod.Fields[0].Kind != KindString || mod.Fields[0].Length != 260 {
		t.Errorf("path field = %+v", mod.Fields[0])
	}
	if mod.Fields[1].Kind != KindInt32 {
		t.Errorf("age kind = %s, want int32", mod.Fields[1].Kind)
	}
}

func TestParseDefinitionUnknownEnum(t *testing.T) {
	_, err := ParseDefinition([]byte(`
tables:
  - name: T
    fields:
      - {name: tag, type: enum, enum: Missing}
`))
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want MismatchError", err)
	}
}

func TestLoadDataset(t *testing.T) {
	s, err := ParseDefinition([]byte(testDefinition))
	if err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "a.yaml")
	data := `
source: a.pdb
tables:
  Functions:
    - {name: main, size: 12, tag: Function, addr: {section: 1, offset: 16, rv: 4096}, inlined: false}
    - {name: "x,y", size: 0, tag: Null, addr: 8192, inlined: true}
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadDataset(s, path)
	if err != nil {
		t.Fatalf("LoadDataset() error = %v", err)
	}
	if ds.Source != "a.pdb" {
		t.Errorf("Source = %q", ds.Source)
	}

	fn, _ := ds.Schema.Table("Functions")
	if fn.RowCount() != 2 {
		t.Fatalf("RowCount() = %d, want 2", fn.RowCount())
	}
	if err := ValidateTable(fn); err != nil {
		t.Fatalf("loaded rows invalid: %v", err)
	}

	var first Record
	_ = fn.EachRow(func(rec Record) error {
		if first == nil {
			first = rec
		}
		return nil
	})
	if first[3] != (Address{Section: 1, Offset: 16, RV: 4096}) {
		t.Errorf("addr = %v", first[3])
	}
	if first[2] != Symbol("Function") {
		t.Errorf("tag = %v", first[2])
	}

	mod, _ := ds.Schema.Table("Modules")
	if mod.RowCount() != 0 {
		t.Errorf("Modules should be empty, got %d rows", mod.RowCount())
	}
}

func TestParseDatasetErrors(t *testing.T) {
	s, err := ParseDefinition([]byte(testDefinition))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data string
	}{
		{"unknown table", "tables:\n  Nope:\n    - {a: 1}\n"},
		{"missing field", "tables:\n  Modules:\n    - {path: x}\n"},
		{"unknown field", "tables:\n  Modules:\n    - {path: x, age: 1, extra: 2}\n"},
		{"wrong type", "tables:\n  Modules:\n    - {path: 5, age: 1}\n"},
		{"out of range", "tables:\n  Functions:\n    - {name: a, size: -1, tag: Null, addr: 0, inlined: false}\n"},
		{"bad symbol", "tables:\n  Functions:\n    - {name: a, size: 1, tag: Data, addr: 0, inlined: false}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset(s, []byte(tt.data))
			var mismatch *MismatchError
			if !errors.As(err, &mismatch) {
				t.Fatalf("error = %v, want MismatchError", err)
			}
		})
	}
}
