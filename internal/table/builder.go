// Package table walks spreadsheet data rows with a resolved column mapping
// and produces records ready for flattening and transmission.
package table

import (
	"iter"

	"github.com/evanrobinson2/olisync/internal/mapping"
)

// Field is one output field with the cell value read for it.
type Field struct {
	Name  string
	Value any
}

// Group is one grouping key's contribution to a record. Exactly one of
// Single and Fields is set: Single when the group resolved to one column,
// Fields when it resolved to two or more. Groups that resolved to zero
// columns never appear in a Record.
type Group struct {
	Key    string
	Single *Field
	Fields []Field
}

// Nested reports whether the group carries a sub-object rather than a
// single top-level field.
func (g Group) Nested() bool { return g.Single == nil }

// Record is one data row transformed through the mapping. Groups preserves
// configuration order.
type Record struct {
	Groups []Group
}

// Group returns the named group of the record.
func (r Record) Group(key string) (Group, bool) {
	for _, g := range r.Groups {
		if g.Key == key {
			return g, true
		}
	}
	return Group{}, false
}

// Builder turns data rows into Records.
type Builder struct {
	groups []mapping.Group
	rows   [][]any
}

// NewBuilder creates a Builder over the rows immediately following the
// header row.
func NewBuilder(groups []mapping.Group, rows [][]any) *Builder {
	return &Builder{groups: groups, rows: rows}
}

// Records returns a lazy sequence of Records, rebuilt from the first row on
// every iteration.
//
// Iteration stops at the first row whose column-0 cell is empty or absent;
// that row and everything after it are discarded. This sentinel is the sole
// termination condition. Short rows are tolerated: a referenced column
// beyond the row's extent reads as absent.
func (b *Builder) Records() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for _, row := range b.rows {
			if blankCell(cellAt(row, 0)) {
				return
			}
			if !yield(b.build(row)) {
				return
			}
		}
	}
}

// BuildAll materializes the full sequence.
func (b *Builder) BuildAll() []Record {
	var out []Record
	for rec := range b.Records() {
		out = append(out, rec)
	}
	return out
}

func (b *Builder) build(row []any) Record {
	rec := Record{}
	for _, g := range b.groups {
		switch len(g.Columns) {
		case 0:
			// group resolved nothing; omit entirely
		case 1:
			col := g.Columns[0]
			rec.Groups = append(rec.Groups, Group{
				Key:    g.Key,
				Single: &Field{Name: col.Field, Value: cellAt(row, col.Index)},
			})
		default:
			fields := make([]Field, 0, len(g.Columns))
			for _, col := range g.Columns {
				fields = append(fields, Field{Name: col.Field, Value: cellAt(row, col.Index)})
			}
			rec.Groups = append(rec.Groups, Group{Key: g.Key, Fields: fields})
		}
	}
	return rec
}

// cellAt reads a cell without coercion; out-of-range indexes read as nil.
func cellAt(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// blankCell reports the row-termination sentinel: nil or empty string.
func blankCell(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
