package models

// ServerEventKind enumerates the server event variants.
// String returns the name used in logs and in the stored event_type column.
type ServerEventKind uint8

// Server event variants.
const (
	ServerUp ServerEventKind = iota + 1
	ServerDown
	SettingsChanged
)

func (k ServerEventKind) String() string {
	switch k {
	case ServerUp:
		return "up"
	case ServerDown:
		return "down"
	case SettingsChanged:
		return "setting change"
	}

	return "unknown"
}

// ServerEvent is a transient server event produced during one cycle.
// Info is set only for SettingsChanged and carries the new server info.
type ServerEvent struct {
	Info *ServerInfo
	Kind ServerEventKind
}

// PlayerEventKind enumerates the player event variants.
// String returns the name used in logs and in the stored event_type column.
type PlayerEventKind uint8

// Player event variants.
const (
	PlayerJoined PlayerEventKind = iota + 1
	PlayerLeft
	TargetJoined
	TargetLeft
	PointUpdate
)

func (k PlayerEventKind) String() string {
	switch k {
	case PlayerJoined:
		return "join"
	case PlayerLeft:
		return "leave"
	case TargetJoined:
		return "target join"
	case TargetLeft:
		return "target leave"
	case PointUpdate:
		return "point change"
	}

	return "unknown"
}

// IsJoin reports whether the kind is one of the join variants.
func (k PlayerEventKind) IsJoin() bool {
	return k == PlayerJoined || k == TargetJoined
}

// IsLeave reports whether the kind is one of the leave variants.
// Every leave produces exactly one session row.
func (k PlayerEventKind) IsLeave() bool {
	return k == PlayerLeft || k == TargetLeft
}

// IsTarget reports whether the kind concerns a watched player.
func (k PlayerEventKind) IsTarget() bool {
	return k == TargetJoined || k == TargetLeft
}

// PlayerEvent is a transient player event produced by the diff engine.
// For leave variants Player holds the last observed snapshot; for PointUpdate
// it holds the current snapshot and Score equals the new score.
type PlayerEvent struct {
	Player PlayerSnapshot
	Score  int
	Kind   PlayerEventKind
}
