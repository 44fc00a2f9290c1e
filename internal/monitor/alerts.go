package monitor

import (
	"fmt"

	"github.com/1Michael23/tf2-surveillance/internal/models"
)

// Alert colours as decimal RGB.
const (
	ColorTargetJoined = 16711680
	ColorTargetLeft   = 22230
)

// Alert is one notification about a watched player.
type Alert struct {
	Title       string
	Description string
	Color       int
}

// Alerts builds the notifications for the watched player events of a report.
func Alerts(report models.EndpointReport) []Alert {
	var alerts []Alert
	for _, ev := range report.PlayerEvents {
		switch ev.Kind {
		case models.TargetJoined:
			alerts = append(alerts, Alert{
				Title: "🚨🚨🚨 Alert.",
				Description: fmt.Sprintf("__**%s**__ Detected in server \n(%s : %s)",
					ev.Player.Name, serverLabel(report.Info), report.Endpoint),
				Color: ColorTargetJoined,
			})
		case models.TargetLeft:
			alerts = append(alerts, Alert{
				Title: "🦀🦀🦀 Runner.",
				Description: fmt.Sprintf("__**%s**__ Left the server \n(%s : %s)\nPoints: %d, Duration: %s",
					ev.Player.Name, serverLabel(report.Info), report.Endpoint, ev.Player.Score, FormatDuration(ev.Player.Duration)),
				Color: ColorTargetLeft,
			})
		}
	}

	return alerts
}

func serverLabel(info *models.ServerInfo) string {
	if info == nil {
		return "Unknown name : Unknown map"
	}

	return info.Name + " : " + info.Map
}
