package schema

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Descriptor maps a Go record type onto an ordered field list. It is built
// once per record type and then used to read rows generically.
//
// Example:
//
//	d := schema.Describe[Symbol]("Symbols", "public symbols", "symbols").
//	    String("name", "symbol name", func(s Symbol) string { return s.Name }).
//	    Address("addr", "location", func(s Symbol) schema.Address { return s.Addr })
//	table := d.Table(symbols)
type Descriptor[T any] struct {
	name        string
	description string
	category    string
	fields      []Field
	getters     []func(T) any
}

// Describe starts a descriptor for the table name.
func Describe[T any](name, description, category string) *Descriptor[T] {
	return &Descriptor[T]{name: name, description: description, category: category}
}

func column[T, V any](d *Descriptor[T], f Field, get func(T) V) *Descriptor[T] {
	d.fields = append(d.fields, f)
	d.getters = append(d.getters, func(v T) any { return get(v) })
	return d
}

// Int8 adds an int8 column.
func (d *Descriptor[T]) Int8(name, desc string, get func(T) int8) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindInt8}, get)
}

// Int16 adds an int16 column.
func (d *Descriptor[T]) Int16(name, desc string, get func(T) int16) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindInt16}, get)
}

// Int32 adds an int32 column.
func (d *Descriptor[T]) Int32(name, desc string, get func(T) int32) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindInt32}, get)
}

// Int64 adds an int64 column.
func (d *Descriptor[T]) Int64(name, desc string, get func(T) int64) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindInt64}, get)
}

// Uint8 adds a uint8 column.
func (d *Descriptor[T]) Uint8(name, desc string, get func(T) uint8) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindUint8}, get)
}

// Uint16 adds a uint16 column.
func (d *Descriptor[T]) Uint16(name, desc string, get func(T) uint16) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindUint16}, get)
}

// Uint32 adds a uint32 column.
func (d *Descriptor[T]) Uint32(name, desc string, get func(T) uint32) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindUint32}, get)
}

// Uint64 adds a uint64 column.
func (d *Descriptor[T]) Uint64(name, desc string, get func(T) uint64) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindUint64}, get)
}

// Float32 adds a float32 column.
func (d *Descriptor[T]) Float32(name, desc string, get func(T) float32) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindFloat32}, get)
}

// Float64 adds a float64 column.
func (d *Descriptor[T]) Float64(name, desc string, get func(T) float64) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindFloat64}, get)
}

// Bool adds a boolean column.
func (d *Descriptor[T]) Bool(name, desc string, get func(T) bool) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindBool}, get)
}

// String adds a text column.
func (d *Descriptor[T]) String(name, desc string, get func(T) string) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindString}, get)
}

// StringN adds a text column limited to length characters.
func (d *Descriptor[T]) StringN(name, desc string, length int, get func(T) string) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindString, Length: length}, get)
}

// Enum adds an enumeration column. The accessor returns a value whose
// String method yields the symbol name.
func (d *Descriptor[T]) Enum(name, desc string, enum *Enum, get func(T) fmt.Stringer) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindEnum, Enum: enum}, get)
}

// Address adds an address reference column.
func (d *Descriptor[T]) Address(name, desc string, get func(T) Address) *Descriptor[T] {
	return column(d, Field{Name: name, Description: desc, Kind: KindAddress}, get)
}

// Key marks the most recently added column as indexed.
func (d *Descriptor[T]) Key() *Descriptor[T] {
	if n := len(d.fields); n > 0 {
		d.fields[n-1].Key = true
	}
	return d
}

// Fields returns a copy of the declared fields.
func (d *Descriptor[T]) Fields() []Field {
	return slices.Clone(d.fields)
}

// Record reads the values of v in field order.
func (d *Descriptor[T]) Record(v T) Record {
	rec := make(Record, len(d.getters))
	for i, get := range d.getters {
		rec[i] = get(v)
	}
	return rec
}

// Table binds items as the rows of the described table.
func (d *Descriptor[T]) Table(items []T) Table {
	return d.table(&sliceRows[T]{d: d, items: items})
}

func (d *Descriptor[T]) table(rows RowSource) Table {
	return Table{
		Name:        d.name,
		Description: d.description,
		Category:    d.category,
		Fields:      d.Fields(),
		Rows:        rows,
	}
}

// Keyed binds a map as the rows of the described table. Rows are produced
// in ascending key order so repeated exports are byte-identical.
func Keyed[K cmp.Ordered, T any](d *Descriptor[T], m map[K]T) Table {
	return d.table(&mapRows[K, T]{d: d, m: m, keys: slices.Sorted(maps.Keys(m))})
}

type sliceRows[T any] struct {
	d     *Descriptor[T]
	items []T
}

func (r *sliceRows[T]) Len() int { return len(r.items) }

func (r *sliceRows[T]) Each(fn func(Record) error) error {
	for _, item := range r.items {
		if err := fn(r.d.Record(item)); err != nil {
			return err
		}
	}
	return nil
}

type mapRows[K cmp.Ordered, T any] struct {
	d    *Descriptor[T]
	m    map[K]T
	keys []K
}

func (r *mapRows[K, T]) Len() int { return len(r.keys) }

func (r *mapRows[K, T]) Each(fn func(Record) error) error {
	for _, k := range r.keys {
		if err := fn(r.d.Record(r.m[k])); err != nil {
			return err
		}
	}
	return nil
}
