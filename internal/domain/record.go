package domain

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// ── Record ─────────────────────────────────────────────────
// One typed row of a source table. Values are typed once at load time
// and never change afterwards.

// FieldKind is the parsed type of a column.
type FieldKind string

const (
	KindText   FieldKind = "text"
	KindNumber FieldKind = "number"
	KindDate   FieldKind = "date"
)

// Field describes a single column in a dataset.
type Field struct {
	Name string    `json:"name"`
	Kind FieldKind `json:"kind"`
}

// Schema describes the typed shape of a Table.
type Schema struct {
	Fields    []Field `json:"fields"`
	TimeField string  `json:"timeField,omitempty"` // designated temporal column, may be empty
}

// FieldNames returns an ordered list of field names.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// NumberFields returns the numeric field names in column order.
func (s Schema) NumberFields() []string {
	var names []string
	for _, f := range s.Fields {
		if f.Kind == KindNumber {
			names = append(names, f.Name)
		}
	}
	return names
}

// Lookup returns the field with the given name.
func (s Schema) Lookup(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Record is a single immutable row. Build one with NewRecordBuilder.
type Record struct {
	text    map[string]string
	numbers map[string]float64
	dates   map[string]time.Time
	timeKey string
}

// Text returns the text value of a field.
func (r Record) Text(name string) (string, bool) {
	v, ok := r.text[name]
	return v, ok
}

// Number returns the numeric value of a field.
func (r Record) Number(name string) (float64, bool) {
	v, ok := r.numbers[name]
	return v, ok
}

// Date returns the date value of a field.
func (r Record) Date(name string) (time.Time, bool) {
	v, ok := r.dates[name]
	return v, ok
}

// Time returns the value of the designated temporal field.
func (r Record) Time() (time.Time, bool) {
	if r.timeKey == "" {
		return time.Time{}, false
	}
	return r.Date(r.timeKey)
}

// Display returns the value of any field formatted as text, the way
// categorical filters and category axes see it.
func (r Record) Display(name string) (string, bool) {
	if v, ok := r.text[name]; ok {
		return v, true
	}
	if v, ok := r.numbers[name]; ok {
		return strconv.FormatFloat(v, 'f', -1, 64), true
	}
	if v, ok := r.dates[name]; ok {
		return v.Format(DateLayout), true
	}
	return "", false
}

// Map flattens the record for JSON output.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.text)+len(r.numbers)+len(r.dates))
	for k, v := range r.text {
		m[k] = v
	}
	for k, v := range r.numbers {
		m[k] = v
	}
	for k, v := range r.dates {
		m[k] = v.Format(DateLayout)
	}
	return m
}

// RecordBuilder accumulates typed values for a single Record.
type RecordBuilder struct {
	r Record
}

// NewRecordBuilder starts a record whose temporal field is timeField.
func NewRecordBuilder(timeField string) *RecordBuilder {
	return &RecordBuilder{r: Record{
		text:    map[string]string{},
		numbers: map[string]float64{},
		dates:   map[string]time.Time{},
		timeKey: timeField,
	}}
}

func (b *RecordBuilder) Text(name, v string) *RecordBuilder {
	b.r.text[name] = v
	return b
}

// Number stores a numeric value. NaN and infinities are rejected.
func (b *RecordBuilder) Number(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("field %q: non-finite number %v", name, v)
	}
	b.r.numbers[name] = v
	return nil
}

func (b *RecordBuilder) Date(name string, v time.Time) *RecordBuilder {
	b.r.dates[name] = v
	return b
}

// Build returns the finished Record. The builder must not be reused.
func (b *RecordBuilder) Build() Record {
	r := b.r
	b.r = Record{}
	return r
}

// DateLayout is the fixed layout of temporal columns and range bounds.
const DateLayout = "2006-01-02"
