package domain

// Table is an ordered, immutable sequence of Records. It is loaded once
// per session and shared read-only by every filter and projection.
type Table struct {
	schema  Schema
	records []Record
}

// NewTable copies records into a new Table.
func NewTable(schema Schema, records []Record) *Table {
	rs := make([]Record, len(records))
	copy(rs, records)
	return &Table{schema: schema, records: rs}
}

func (t *Table) Schema() Schema { return t.schema }

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

func (t *Table) At(i int) Record { return t.records[i] }

// Records returns a copy of the rows.
func (t *Table) Records() []Record {
	rs := make([]Record, len(t.records))
	copy(rs, t.records)
	return rs
}

// Subset returns a new Table holding the rows at the given indices, in
// the order given.
func (t *Table) Subset(indices []int) *Table {
	rs := make([]Record, len(indices))
	for i, idx := range indices {
		rs[i] = t.records[idx]
	}
	return &Table{schema: t.schema, records: rs}
}
