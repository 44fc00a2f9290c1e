package storage

import (
	"context"

	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// InsertSession appends a session row. Duration is stored in seconds.
func (r *Repository) InsertSession(ctx context.Context, s models.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (server_id, entity_id, score, duration, joined_at, left_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.ServerID, s.EntityID, s.Score, toSeconds(s.Duration), s.JoinedAt.UTC(), s.LeftAt.UTC())

	return err
}

// Sessions returns the sessions recorded on a server, oldest first.
func (r *Repository) Sessions(ctx context.Context, serverID int64) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT session_id, server_id, entity_id, score, duration, joined_at, left_at
		FROM sessions
		WHERE server_id = ?
		ORDER BY session_id
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []models.Session
	for rows.Next() {
		var (
			s       models.Session
			seconds float64
		)
		if err := rows.Scan(&s.ID, &s.ServerID, &s.EntityID, &s.Score, &seconds, &s.JoinedAt, &s.LeftAt); err != nil {
			return nil, err
		}
		s.Duration = fromSeconds(seconds)
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}
