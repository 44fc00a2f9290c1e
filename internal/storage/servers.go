package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// UpsertServer inserts the server address if it is unknown and returns its id.
// A non-empty country code replaces the stored one; an empty one never clears it.
func (r *Repository) UpsertServer(ctx context.Context, address, countryCode string, at time.Time) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO servers (address, country_code, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(address) DO UPDATE SET
			country_code = CASE WHEN excluded.country_code != '' THEN excluded.country_code ELSE servers.country_code END
		RETURNING server_id
	`, address, countryCode, at.UTC()).Scan(&id)

	return id, err
}

// ServerByAddress returns the server row for address or ErrNotFound.
func (r *Repository) ServerByAddress(ctx context.Context, address string) (models.Server, error) {
	var s models.Server
	err := r.db.QueryRowContext(ctx, `
		SELECT server_id, address, country_code, created_at
		FROM servers
		WHERE address = ?
	`, address).Scan(&s.ID, &s.Address, &s.CountryCode, &s.CreatedAt)

	return s, notFound(err)
}

// Servers returns all known servers ordered by id.
func (r *Repository) Servers(ctx context.Context) ([]models.Server, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT server_id, address, country_code, created_at
		FROM servers
		ORDER BY server_id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var servers []models.Server
	for rows.Next() {
		var s models.Server
		if err := rows.Scan(&s.ID, &s.Address, &s.CountryCode, &s.CreatedAt); err != nil {
			return nil, err
		}
		servers = append(servers, s)
	}

	return servers, rows.Err()
}

// InsertSettings appends a settings history row built from info.
func (r *Repository) InsertSettings(ctx context.Context, serverID int64, info models.ServerInfo, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO server_settings (
			server_id, name, max_players, current_map, vac_status, has_password, game_version, bots, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, serverID, info.Name, info.MaxPlayers, info.Map, info.VAC, info.Password, info.Version, info.Bots, at.UTC())

	return err
}

// LatestSettings returns the tracked fields of the newest settings row of the
// server at address. The bool is false when the server has no history.
func (r *Repository) LatestSettings(ctx context.Context, address string) (models.Settings, bool, error) {
	var s models.Settings
	err := r.db.QueryRowContext(ctx, `
		SELECT st.name, st.current_map, st.max_players, st.bots, st.vac_status, st.has_password
		FROM server_settings st
		JOIN servers sv ON sv.server_id = st.server_id
		WHERE sv.address = ?
		ORDER BY st.setting_id DESC
		LIMIT 1
	`, address).Scan(&s.Name, &s.Map, &s.MaxPlayers, &s.Bots, &s.VAC, &s.Password)

	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, false, nil
	}
	if err != nil {
		return models.Settings{}, false, err
	}

	return s, true, nil
}

// SettingsHistory returns every settings row of a server, oldest first.
func (r *Repository) SettingsHistory(ctx context.Context, serverID int64) ([]models.SettingsRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT setting_id, server_id, name, current_map, max_players, bots, vac_status, has_password, game_version, created_at
		FROM server_settings
		WHERE server_id = ?
		ORDER BY setting_id
	`, serverID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var history []models.SettingsRecord
	for rows.Next() {
		var rec models.SettingsRecord
		if err := rows.Scan(
			&rec.ID, &rec.ServerID, &rec.Name, &rec.Map, &rec.MaxPlayers, &rec.Bots,
			&rec.VAC, &rec.Password, &rec.GameVersion, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		history = append(history, rec)
	}

	return history, rows.Err()
}
