package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// Event type values as stored in the event_type columns.
const (
	eventUp            = "up"
	eventDown          = "down"
	eventSettingChange = "setting change"
	eventJoin          = "join"
	eventLeave         = "leave"
	eventTargetJoin    = "target join"
	eventTargetLeave   = "target leave"
	eventPointChange   = "point change"
)

func encodeServerEvent(ev models.ServerEvent) (kind, data string, err error) {
	switch ev.Kind {
	case models.ServerUp:
		return eventUp, "", nil
	case models.ServerDown:
		return eventDown, "", nil
	case models.SettingsChanged:
		if ev.Info != nil {
			data = ev.Info.Map
		}
		return eventSettingChange, data, nil
	}

	return "", "", fmt.Errorf("unknown server event kind %d", ev.Kind)
}

func decodeServerEventKind(kind string) (models.ServerEventKind, error) {
	switch kind {
	case eventUp:
		return models.ServerUp, nil
	case eventDown:
		return models.ServerDown, nil
	case eventSettingChange:
		return models.SettingsChanged, nil
	}

	return 0, fmt.Errorf("unknown server event type %q", kind)
}

func encodePlayerEvent(ev models.PlayerEvent) (kind, data string, err error) {
	switch ev.Kind {
	case models.PlayerJoined:
		return eventJoin, "", nil
	case models.PlayerLeft:
		return eventLeave, "", nil
	case models.TargetJoined:
		return eventTargetJoin, "", nil
	case models.TargetLeft:
		return eventTargetLeave, "", nil
	case models.PointUpdate:
		return eventPointChange, strconv.Itoa(ev.Score), nil
	}

	return "", "", fmt.Errorf("unknown player event kind %d", ev.Kind)
}

func decodePlayerEventKind(kind string) (models.PlayerEventKind, error) {
	switch kind {
	case eventJoin:
		return models.PlayerJoined, nil
	case eventLeave:
		return models.PlayerLeft, nil
	case eventTargetJoin:
		return models.TargetJoined, nil
	case eventTargetLeave:
		return models.TargetLeft, nil
	case eventPointChange:
		return models.PointUpdate, nil
	}

	return 0, fmt.Errorf("unknown player event type %q", kind)
}

// InsertServerEvent appends a server event row.
func (r *Repository) InsertServerEvent(ctx context.Context, serverID int64, ev models.ServerEvent, at time.Time) error {
	kind, data, err := encodeServerEvent(ev)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO server_events (server_id, event_type, event_data, created_at) VALUES (?, ?, ?, ?)",
		serverID, kind, data, at.UTC(),
	)

	return err
}

// InsertPlayerEvent appends a player event row.
func (r *Repository) InsertPlayerEvent(ctx context.Context, serverID, entityID int64, ev models.PlayerEvent, at time.Time) error {
	kind, data, err := encodePlayerEvent(ev)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO player_events (server_id, entity_id, event_type, event_data, created_at) VALUES (?, ?, ?, ?, ?)",
		serverID, entityID, kind, data, at.UTC(),
	)

	return err
}

// ServerEvents returns the events of a server, oldest first.
func (r *Repository) ServerEvents(ctx context.Context, serverID int64) ([]models.ServerEventRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, server_id, event_type, event_data, created_at
		FROM server_events
		WHERE server_id = ?
		ORDER BY event_id
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []models.ServerEventRecord
	for rows.Next() {
		var (
			rec  models.ServerEventRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &rec.ServerID, &kind, &rec.Data, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Kind, err = decodeServerEventKind(kind); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// PlayerEvents returns the player events recorded on a server, oldest first.
func (r *Repository) PlayerEvents(ctx context.Context, serverID int64) ([]models.PlayerEventRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, server_id, entity_id, event_type, event_data, created_at
		FROM player_events
		WHERE server_id = ?
		ORDER BY event_id
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []models.PlayerEventRecord
	for rows.Next() {
		var (
			rec  models.PlayerEventRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &rec.ServerID, &rec.EntityID, &kind, &rec.Data, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if rec.Kind, err = decodePlayerEventKind(kind); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// PruneEvents deletes server and player events created before the cutoff.
// Sessions and settings history are kept.
func (r *Repository) PruneEvents(ctx context.Context, before time.Time) (serverEvents, playerEvents int64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, "DELETE FROM server_events WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, 0, err
	}
	serverEvents, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, "DELETE FROM player_events WHERE created_at < ?", before.UTC())
	if err != nil {
		return 0, 0, err
	}
	playerEvents, _ = res.RowsAffected()

	return serverEvents, playerEvents, tx.Commit()
}
