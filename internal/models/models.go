// Package models defines the data structures shared by the scanner, the diff engine and the persistence layer.
package models

import (
	"strings"
	"time"
)

// Endpoint is the canonical "ip:port" address of a monitored game server.
type Endpoint string

// String returns the endpoint address.
func (e Endpoint) String() string {
	return string(e)
}

// ServerInfo is a snapshot of one A2S_INFO response.
type ServerInfo struct {
	Name        string `json:"name"`
	Map         string `json:"map"`
	Game        string `json:"game"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Players     int    `json:"players"`
	MaxPlayers  int    `json:"max_players"`
	Bots        int    `json:"bots"`
	VAC         bool   `json:"vac"`
	Password    bool   `json:"password"`
}

// Settings returns the tracked subset of the server info used for change detection.
func (i ServerInfo) Settings() Settings {
	return Settings{
		Name:       i.Name,
		Map:        i.Map,
		MaxPlayers: i.MaxPlayers,
		Bots:       i.Bots,
		VAC:        i.VAC,
		Password:   i.Password,
	}
}

// Settings holds only the server fields whose change produces a settings record.
// It is comparable with ==.
type Settings struct {
	Name       string
	Map        string
	MaxPlayers int
	Bots       int
	VAC        bool
	Password   bool
}

// PlayerSnapshot is one roster entry as reported by A2S_PLAYER.
type PlayerSnapshot struct {
	Name     string        `json:"name"`
	Score    int           `json:"score"`
	Duration time.Duration `json:"duration"`
}

// Blank reports whether the player name is empty or whitespace only.
// Blank names are connecting clients and never produce events.
func (p PlayerSnapshot) Blank() bool {
	return strings.TrimSpace(p.Name) == ""
}

// EndpointReport is the outcome of scanning one endpoint during one cycle.
type EndpointReport struct {
	InfoErr      error
	RosterErr    error
	Info         *ServerInfo
	Endpoint     Endpoint
	Roster       []PlayerSnapshot
	ServerEvents []ServerEvent
	PlayerEvents []PlayerEvent
}

// Succeeded reports whether both the info and roster queries succeeded.
func (r EndpointReport) Succeeded() bool {
	return r.InfoErr == nil && r.RosterErr == nil
}

// Cycle bundles every endpoint report collected during one scan cycle.
type Cycle struct {
	Started   time.Time
	Endpoints []Endpoint
	Reports   []EndpointReport
	Number    uint64
}

// Server is a persisted monitored server.
type Server struct {
	CreatedAt   time.Time `json:"created_at"`
	Address     string    `json:"address"`
	CountryCode string    `json:"country_code"`
	ID          int64     `json:"server_id"`
}

// Entity is a persisted player name, shared across servers.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"entity_id"`
}

// SettingsRecord is one row of the append-only server settings history.
type SettingsRecord struct {
	CreatedAt   time.Time `json:"created_at"`
	GameVersion string    `json:"game_version"`
	Settings
	ID       int64 `json:"setting_id"`
	ServerID int64 `json:"server_id"`
}

// Session is a reconstructed play session, written once per observed leave.
type Session struct {
	JoinedAt time.Time     `json:"joined_at"`
	LeftAt   time.Time     `json:"left_at"`
	Duration time.Duration `json:"duration"`
	ID       int64         `json:"session_id"`
	ServerID int64         `json:"server_id"`
	EntityID int64         `json:"entity_id"`
	Score    int           `json:"score"`
}

// ServerEventRecord is a persisted server event.
type ServerEventRecord struct {
	CreatedAt time.Time       `json:"created_at"`
	Data      string          `json:"event_data"`
	ID        int64           `json:"event_id"`
	ServerID  int64           `json:"server_id"`
	Kind      ServerEventKind `json:"event_type"`
}

// PlayerEventRecord is a persisted player event.
type PlayerEventRecord struct {
	CreatedAt time.Time       `json:"created_at"`
	Data      string          `json:"event_data"`
	ID        int64           `json:"event_id"`
	ServerID  int64           `json:"server_id"`
	EntityID  int64           `json:"entity_id"`
	Kind      PlayerEventKind `json:"event_type"`
}
