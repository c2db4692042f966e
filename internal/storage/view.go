package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chartkit/internal/domain"

	"github.com/google/uuid"
)

// ViewStore persists saved dashboard views.
type ViewStore struct {
	db *DB
}

func NewViewStore(db *DB) *ViewStore {
	return &ViewStore{db: db}
}

const viewColumns = `id, name, title, source_type, source_config, parse_json, kind,
	category_field, value_field, series_order, state_json, locale, created_at, updated_at`

func (s *ViewStore) CreateView(v *domain.View) error {
	now := time.Now()
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	v.CreatedAt = now
	v.UpdatedAt = now

	cols, err := encodeView(v)
	if err != nil {
		return err
	}
	_, err = s.db.conn.Exec(
		`INSERT INTO views (`+viewColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Title, v.SourceType, cols.sourceConfig, cols.parse, string(v.Kind),
		v.CategoryField, v.ValueField, cols.seriesOrder, cols.state, v.Locale,
		v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create view %q: %w", v.Name, err)
	}
	return nil
}

func (s *ViewStore) GetView(id string) (*domain.View, error) {
	v, err := scanView(s.db.conn.QueryRow(`SELECT `+viewColumns+` FROM views WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("view %s: %w", id, ErrNotFound)
	}
	return v, err
}

func (s *ViewStore) GetViewByName(name string) (*domain.View, error) {
	v, err := scanView(s.db.conn.QueryRow(`SELECT `+viewColumns+` FROM views WHERE name = ?`, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("view %q: %w", name, ErrNotFound)
	}
	return v, err
}

func (s *ViewStore) ListViews() ([]domain.View, error) {
	rows, err := s.db.conn.Query(`SELECT ` + viewColumns + ` FROM views ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var views []domain.View
	for rows.Next() {
		v, err := scanView(rows)
		if err != nil {
			return nil, err
		}
		views = append(views, *v)
	}
	return views, rows.Err()
}

// UpdateView rewrites every column of v, including the saved control state.
func (s *ViewStore) UpdateView(v *domain.View) error {
	v.UpdatedAt = time.Now()
	cols, err := encodeView(v)
	if err != nil {
		return err
	}
	res, err := s.db.conn.Exec(
		`UPDATE views SET name=?, title=?, source_type=?, source_config=?, parse_json=?, kind=?,
		 category_field=?, value_field=?, series_order=?, state_json=?, locale=?, updated_at=?
		 WHERE id=?`,
		v.Name, v.Title, v.SourceType, cols.sourceConfig, cols.parse, string(v.Kind),
		v.CategoryField, v.ValueField, cols.seriesOrder, cols.state, v.Locale, v.UpdatedAt,
		v.ID,
	)
	if err != nil {
		return fmt.Errorf("update view %s: %w", v.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("view %s: %w", v.ID, ErrNotFound)
	}
	return nil
}

// DeleteView removes the view; its export jobs and their run logs go with it.
func (s *ViewStore) DeleteView(id string) error {
	res, err := s.db.conn.Exec(`DELETE FROM views WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("view %s: %w", id, ErrNotFound)
	}
	return nil
}

// ── encoding ───────────────────────────────────────────────

type viewJSON struct {
	sourceConfig, parse, seriesOrder, state string
}

func encodeView(v *domain.View) (viewJSON, error) {
	var out viewJSON
	fields := []struct {
		dst *string
		val any
	}{
		{&out.sourceConfig, v.SourceConfig},
		{&out.parse, v.Parse},
		{&out.seriesOrder, v.SeriesOrder},
		{&out.state, v.State},
	}
	for _, f := range fields {
		b, err := json.Marshal(f.val)
		if err != nil {
			return viewJSON{}, fmt.Errorf("encode view %q: %w", v.Name, err)
		}
		*f.dst = string(b)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanView(row rowScanner) (*domain.View, error) {
	v := &domain.View{}
	var kind string
	var enc viewJSON
	if err := row.Scan(
		&v.ID, &v.Name, &v.Title, &v.SourceType, &enc.sourceConfig, &enc.parse, &kind,
		&v.CategoryField, &v.ValueField, &enc.seriesOrder, &enc.state, &v.Locale,
		&v.CreatedAt, &v.UpdatedAt,
	); err != nil {
		return nil, err
	}
	v.Kind = domain.ChartKind(kind)

	if err := json.Unmarshal([]byte(enc.sourceConfig), &v.SourceConfig); err != nil {
		return nil, fmt.Errorf("view %s source config: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(enc.parse), &v.Parse); err != nil {
		return nil, fmt.Errorf("view %s parse options: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(enc.seriesOrder), &v.SeriesOrder); err != nil {
		return nil, fmt.Errorf("view %s series order: %w", v.ID, err)
	}
	if err := json.Unmarshal([]byte(enc.state), &v.State); err != nil {
		return nil, fmt.Errorf("view %s state: %w", v.ID, err)
	}
	return v, nil
}
