// Package datasource loads a typed, immutable table from a registered
// source. A load is single-shot: rows are streamed from the source,
// typed, and collected before Load returns.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"chartkit/internal/domain"
)

// Load reads every row of the source and types it according to opts.
// Any failure is returned as a *domain.LoadError.
func Load(ctx context.Context, sourceType string, cfg SourceConfig, opts domain.ParseOptions) (*domain.Table, error) {
	return load(ctx, sourceType, cfg, opts, 0)
}

// Preview is Load limited to the first maxRows rows.
func Preview(ctx context.Context, sourceType string, cfg SourceConfig, opts domain.ParseOptions, maxRows int) (*domain.Table, error) {
	if maxRows <= 0 {
		maxRows = 20
	}
	return load(ctx, sourceType, cfg, opts, maxRows)
}

func load(ctx context.Context, sourceType string, cfg SourceConfig, opts domain.ParseOptions, maxRows int) (*domain.Table, error) {
	start := time.Now()
	fail := func(row int, err error) error {
		log.Printf("[LOAD] %s failed after %s: %v", sourceType, time.Since(start).Round(time.Millisecond), err)
		return &domain.LoadError{Source: sourceType, Row: row, Err: err}
	}

	source, err := GetSource(sourceType)
	if err != nil {
		return nil, fail(0, err)
	}

	// Cancelling stops the source goroutine once enough rows are collected.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := source.Read(ctx, cfg)

	var (
		parser    *Parser
		records   []domain.Record
		n         int
		truncated bool
	)
	for row := range rowCh {
		if parser == nil {
			if parser, err = NewParser(row.Fields, opts); err != nil {
				cancel()
				drain(rowCh)
				return nil, fail(0, err)
			}
		}
		if row.Header {
			continue
		}
		n++
		rec, err := parser.Parse(row)
		if err != nil {
			cancel()
			drain(rowCh)
			return nil, fail(n, err)
		}
		records = append(records, rec)
		if maxRows > 0 && len(records) >= maxRows {
			truncated = true
			cancel()
			drain(rowCh)
			break
		}
	}

	if err := <-errCh; err != nil && !(truncated && errors.Is(err, context.Canceled)) {
		return nil, fail(0, fmt.Errorf("read: %w", err))
	}
	// Some sources stop on cancellation without reporting it.
	if !truncated && ctx.Err() != nil {
		return nil, fail(0, fmt.Errorf("read interrupted after %d rows: %w", n, ctx.Err()))
	}

	// Sources that send no HeaderRow are asked for their columns.
	if parser == nil {
		columns, err := source.Discover(ctx, cfg)
		if err != nil {
			return nil, fail(0, fmt.Errorf("discover: %w", err))
		}
		if parser, err = NewParser(columns, opts); err != nil {
			return nil, fail(0, err)
		}
	}

	log.Printf("[LOAD] %s: %d rows in %s", sourceType, len(records), time.Since(start).Round(time.Millisecond))
	return domain.NewTable(parser.Schema(), records), nil
}

func drain(ch <-chan RawRow) {
	for range ch {
	}
}
