package datasource

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chartkit/internal/domain"

	"github.com/araddon/dateparse"
)

// ── Parser ─────────────────────────────────────────────────
// Types raw cells once, at load time: the designated temporal column as a
// date, designated numeric columns as finite floats, everything else as
// text.

// AutoLayout asks the parser to detect the date format of each cell.
const AutoLayout = "auto"

// Parser converts RawRows into domain Records for a fixed schema.
type Parser struct {
	schema domain.Schema
	layout string
}

// NewParser builds the typed schema for columns. The temporal field and
// every numeric field must name an existing column.
func NewParser(columns []string, opts domain.ParseOptions) (*Parser, error) {
	numbers := make(map[string]bool, len(opts.NumberFields))
	for _, f := range opts.NumberFields {
		numbers[f] = true
	}

	present := make(map[string]bool, len(columns))
	schema := domain.Schema{TimeField: opts.TimeField}
	for _, col := range columns {
		present[col] = true
		kind := domain.KindText
		switch {
		case col == opts.TimeField:
			kind = domain.KindDate
		case numbers[col]:
			kind = domain.KindNumber
		}
		schema.Fields = append(schema.Fields, domain.Field{Name: col, Kind: kind})
	}

	if opts.TimeField != "" && !present[opts.TimeField] {
		return nil, fmt.Errorf("time field %q: %w", opts.TimeField, domain.ErrUnknownField)
	}
	for _, f := range opts.NumberFields {
		if !present[f] {
			return nil, fmt.Errorf("number field %q: %w", f, domain.ErrUnknownField)
		}
		if f == opts.TimeField {
			return nil, fmt.Errorf("field %q cannot be both the time field and a number field", f)
		}
	}

	layout := opts.TimeLayout
	if layout == "" {
		layout = domain.DateLayout
	}
	return &Parser{schema: schema, layout: layout}, nil
}

func (p *Parser) Schema() domain.Schema { return p.schema }

// Parse types one row. Missing columns are an error for date and number
// fields and an empty string for text fields.
func (p *Parser) Parse(row RawRow) (domain.Record, error) {
	b := domain.NewRecordBuilder(p.schema.TimeField)
	for _, f := range p.schema.Fields {
		raw, _ := row.Get(f.Name)
		switch f.Kind {
		case domain.KindNumber:
			v, err := toNumber(raw)
			if err != nil {
				return domain.Record{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
			if err := b.Number(f.Name, v); err != nil {
				return domain.Record{}, err
			}
		case domain.KindDate:
			t, err := p.toDate(raw)
			if err != nil {
				return domain.Record{}, fmt.Errorf("field %q: %w", f.Name, err)
			}
			b.Date(f.Name, t)
		default:
			b.Text(f.Name, toText(raw))
		}
	}
	return b.Build(), nil
}

func toNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, fmt.Errorf("empty number")
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	case nil:
		return 0, fmt.Errorf("missing number")
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}

func (p *Parser) toDate(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, fmt.Errorf("empty date")
		}
		if p.layout == AutoLayout {
			t, err := dateparse.ParseStrict(s)
			if err != nil {
				return time.Time{}, fmt.Errorf("unrecognized date %q: %w", s, err)
			}
			return t, nil
		}
		t, err := time.Parse(p.layout, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q does not match %s", s, p.layout)
		}
		return t, nil
	case nil:
		return time.Time{}, fmt.Errorf("missing date")
	default:
		return time.Time{}, fmt.Errorf("not a date: %v (%T)", v, v)
	}
}

func toText(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return v.Format(domain.DateLayout)
	default:
		return fmt.Sprint(v)
	}
}
