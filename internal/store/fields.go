package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/weftlabs/weft/internal/ir"
)

// Field is one persisted state field.
type Field struct {
	Name  string
	Value any
	Rev   int64
}

// Loader accepts restored field values. *state.Map satisfies it; restored
// values bypass the persistence hook so a restore never writes back to the
// store it came from.
type Loader interface {
	Load(name string, value any)
}

// SetField writes a field value, replacing any previous value for the name.
// The value is serialized to canonical JSON so identical values always
// produce identical rows. Rewriting an existing name bumps the revision
// counter.
//
// Values outside the runtime model (NaN, the infinities, non-JSON types)
// are rejected.
func (s *Store) SetField(ctx context.Context, name string, value any) error {
	text, err := marshalValue(value)
	if err != nil {
		return fmt.Errorf("set field %q: %w", name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO fields (name, value, rev)
		VALUES (?, ?, 1)
		ON CONFLICT(name) DO UPDATE SET
			value = excluded.value,
			rev = fields.rev + 1
	`, name, text)
	if err != nil {
		return fmt.Errorf("set field %q: %w", name, err)
	}

	return nil
}

// Persist satisfies state.Sink so a Store can be passed directly to
// state.WithPersistence. Writes flow through SetField with a background
// context; the sink is called synchronously inside state writes, which
// carry no context of their own.
func (s *Store) Persist(name string, value any) error {
	return s.SetField(context.Background(), name, value)
}

// Field retrieves a single field by name.
// The second return is false if the field has never been persisted.
func (s *Store) Field(ctx context.Context, name string) (any, bool, error) {
	var text string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM fields WHERE name = ?
	`, name).Scan(&text)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read field %q: %w", name, err)
	}

	value, err := unmarshalValue(text)
	if err != nil {
		return nil, false, fmt.Errorf("read field %q: %w", name, err)
	}
	return value, true, nil
}

// ReadFields returns all persisted fields ordered by byte-wise name so the
// result is deterministic across runs.
//
// Returns an empty slice (not nil) if nothing has been persisted.
func (s *Store) ReadFields(ctx context.Context) ([]Field, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, value, rev
		FROM fields
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query fields: %w", err)
	}
	defer rows.Close()

	var fields []Field
	for rows.Next() {
		var f Field
		var text string
		if err := rows.Scan(&f.Name, &text, &f.Rev); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		f.Value, err = unmarshalValue(text)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields = append(fields, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fields: %w", err)
	}

	// Return empty slice instead of nil
	if fields == nil {
		fields = []Field{}
	}

	return fields, nil
}

// DeleteField removes a field. Deleting an absent name is a no-op.
func (s *Store) DeleteField(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM fields WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete field %q: %w", name, err)
	}
	return nil
}

// RestoreInto loads every persisted field into dst in byte-wise name order
// and reports how many fields were restored. Called before mounting so that
// components see persisted values from their very first render.
func (s *Store) RestoreInto(ctx context.Context, dst Loader) (int, error) {
	fields, err := s.ReadFields(ctx)
	if err != nil {
		return 0, fmt.Errorf("restore: %w", err)
	}
	for _, f := range fields {
		dst.Load(f.Name, f.Value)
	}
	return len(fields), nil
}

// marshalValue converts a runtime value to canonical JSON TEXT for storage.
func marshalValue(value any) (string, error) {
	data, err := ir.MarshalCanonical(value)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}
	return string(data), nil
}

// unmarshalValue parses stored JSON TEXT back into a runtime value. Numbers
// decode as float64, matching the expression evaluator's numeric model.
func unmarshalValue(text string) (any, error) {
	var value any
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil, fmt.Errorf("unmarshal value: %w", err)
	}
	return value, nil
}
