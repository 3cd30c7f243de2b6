package actionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// sortableTime is fixed-width so timestamps order correctly as text.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteSink stores records in the action_log table.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink creates a sink on an already migrated database.
func NewSQLiteSink(db *sql.DB) *SQLiteSink {
	return &SQLiteSink{db: db}
}

// Append inserts all records in one transaction.
func (s *SQLiteSink) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: starting transaction: %w", ErrLogWrite, err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO action_log (id, entity_id, timestamp, actor, command, status, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("%w: preparing insert: %w", ErrLogWrite, err)
	}
	defer stmt.Close()

	for _, r := range records {
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshalling metadata: %w", ErrLogWrite, err)
		}
		if r.Metadata == nil {
			meta = []byte("{}")
		}
		if _, err := stmt.ExecContext(ctx,
			r.ID, r.EntityID,
			r.Timestamp.UTC().Format(sortableTime),
			r.Actor, r.Command, r.Status, string(meta),
		); err != nil {
			return fmt.Errorf("%w: inserting record for %s: %w", ErrLogWrite, r.EntityID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %w", ErrLogWrite, err)
	}
	return nil
}

// List returns records matching filter, most recent first.
func (s *SQLiteSink) List(ctx context.Context, filter Filter) ([]Record, error) {
	var conditions []string
	var args []any

	if filter.EntityID != "" {
		conditions = append(conditions, "entity_id = ?")
		args = append(args, filter.EntityID)
	}
	if filter.Command != "" {
		conditions = append(conditions, "command = ?")
		args = append(args, filter.Command)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since.UTC().Format(sortableTime))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, entity_id, timestamp, actor, command, status, metadata FROM action_log %s ORDER BY timestamp DESC, rowid DESC LIMIT ?",
		where,
	)
	args = append(args, filter.limit())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying action log: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts, meta string
		if err := rows.Scan(&r.ID, &r.EntityID, &ts, &r.Actor, &r.Command, &r.Status, &meta); err != nil {
			return nil, fmt.Errorf("scanning action log: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing action log timestamp %q: %w", ts, err)
		}
		if meta != "" && meta != "{}" {
			if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
				return nil, fmt.Errorf("parsing metadata for %s: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating action log: %w", err)
	}
	return out, nil
}
