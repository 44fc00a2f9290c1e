package storage

import (
	"context"
	"strings"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// lookupChunk keeps IN lists well below the SQLite variable limit.
const lookupChunk = 500

// UpsertEntities inserts the names that are not stored yet in one transaction
// and returns the number of new rows.
func (r *Repository) UpsertEntities(ctx context.Context, names []string, at time.Time) (int64, error) {
	if len(names) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO entities (name, created_at) VALUES (?, ?)")
	if err != nil {
		return 0, err
	}
	defer func() { _ = stmt.Close() }()

	var inserted int64
	for _, name := range names {
		res, err := stmt.ExecContext(ctx, name, at.UTC())
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return inserted, nil
}

// EntityByName returns the entity named name or ErrNotFound.
func (r *Repository) EntityByName(ctx context.Context, name string) (models.Entity, error) {
	var e models.Entity
	err := r.db.QueryRowContext(ctx,
		"SELECT entity_id, name, created_at FROM entities WHERE name = ?", name,
	).Scan(&e.ID, &e.Name, &e.CreatedAt)

	return e, notFound(err)
}

// EntityIDs resolves names to entity ids. Unknown names are absent from the result.
func (r *Repository) EntityIDs(ctx context.Context, names []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(names))

	for start := 0; start < len(names); start += lookupChunk {
		chunk := names[start:min(start+lookupChunk, len(names))]

		args := make([]any, len(chunk))
		for i, name := range chunk {
			args[i] = name
		}

		query := "SELECT entity_id, name FROM entities WHERE name IN (?" + strings.Repeat(",?", len(chunk)-1) + ")"
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, err
		}

		for rows.Next() {
			var (
				id   int64
				name string
			)
			if err := rows.Scan(&id, &name); err != nil {
				_ = rows.Close()
				return nil, err
			}
			ids[name] = id
		}

		err = rows.Err()
		_ = rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return ids, nil
}
