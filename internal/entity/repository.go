package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Repository lists and maintains entities.
type Repository interface {
	List(ctx context.Context) ([]Entity, error)
	Get(ctx context.Context, id string) (*Entity, error)
	Create(ctx context.Context, e *Entity) error
	SetEnabled(ctx context.Context, id string, enabled bool) error
	Delete(ctx context.Context, id string) error
}

// StaticRepository serves a fixed list from configuration.
type StaticRepository struct {
	entities []Entity
}

// NewStaticRepository builds a repository from ids in the given order.
// Duplicate ids keep their first position.
func NewStaticRepository(ids []string) (*StaticRepository, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if err := ValidateID(id); err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Entity{ID: id, Position: len(out), Enabled: true})
	}
	return &StaticRepository{entities: out}, nil
}

// List returns the configured entities.
func (r *StaticRepository) List(context.Context) ([]Entity, error) {
	out := make([]Entity, len(r.entities))
	copy(out, r.entities)
	return out, nil
}

// Get returns one configured entity.
func (r *StaticRepository) Get(_ context.Context, id string) (*Entity, error) {
	for _, e := range r.entities {
		if e.ID == id {
			e := e
			return &e, nil
		}
	}
	return nil, ErrEntityNotFound
}

// Create always fails; edit the configuration file instead.
func (r *StaticRepository) Create(context.Context, *Entity) error { return ErrReadOnly }

// SetEnabled always fails.
func (r *StaticRepository) SetEnabled(context.Context, string, bool) error { return ErrReadOnly }

// Delete always fails.
func (r *StaticRepository) Delete(context.Context, string) error { return ErrReadOnly }

// SQLiteRepository implements Repository on the entities table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `SELECT id, name, position, enabled, created_at, updated_at FROM entities`

// List returns all entities ordered by position then id.
func (r *SQLiteRepository) List(ctx context.Context) ([]Entity, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+` ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var out []Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity row: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity rows: %w", err)
	}
	return out, nil
}

// Get returns a single entity by id.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*Entity, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	e, err := scanEntity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}
	return e, nil
}

// Create inserts e, filling its timestamps.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entity) error {
	if err := ValidateID(e.ID); err != nil {
		return err
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, position, enabled, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Name, e.Position, boolToInt(e.Enabled),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", ErrEntityExists, e.ID)
		}
		return fmt.Errorf("inserting entity %s: %w", e.ID, err)
	}
	return nil
}

// SetEnabled toggles whether an entity receives log rows.
func (r *SQLiteRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE entities SET enabled = ?, updated_at = ? WHERE id = ?`,
		boolToInt(enabled), time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("updating entity %s: %w", id, err)
	}
	return requireOneRow(res)
}

// Delete removes an entity. Its log history is kept.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting entity %s: %w", id, err)
	}
	return requireOneRow(res)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(s scanner) (*Entity, error) {
	var e Entity
	var enabled int
	var createdAt, updatedAt string
	if err := s.Scan(&e.ID, &e.Name, &e.Position, &enabled, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.Enabled = enabled != 0
	e.CreatedAt = parseTime(createdAt)
	e.UpdatedAt = parseTime(updatedAt)
	return &e, nil
}

func requireOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrEntityNotFound
	}
	return nil
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
