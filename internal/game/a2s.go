// Package game queries game servers using the Source Engine Query (A2S) protocol.
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/config"
	"github.com/1Michael23/tf2-surveillance/internal/models"
	"github.com/woozymasta/a2s/pkg/a2s"
)

// ErrInvalidEndpoint is returned when an endpoint address cannot be resolved.
var ErrInvalidEndpoint = errors.New("invalid endpoint")

// Client issues A2S_INFO and A2S_PLAYER queries, one UDP socket per query.
type Client struct {
	options config.A2S
}

// NewClient returns a query client using the given protocol options.
func NewClient(options config.A2S) *Client {
	return &Client{options: options}
}

// FetchInfo connects to the endpoint via UDP and requests A2S_INFO.
func (c *Client) FetchInfo(ctx context.Context, endpoint models.Endpoint) (*models.ServerInfo, error) {
	client, err := c.dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	info, err := client.GetInfo()
	if err != nil {
		return nil, err
	}

	return convertInfo(info), nil
}

// FetchPlayers connects to the endpoint via UDP and requests A2S_PLAYER.
func (c *Client) FetchPlayers(ctx context.Context, endpoint models.Endpoint) ([]models.PlayerSnapshot, error) {
	client, err := c.dial(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	players, err := client.GetPlayers()
	if err != nil {
		return nil, err
	}
	if players == nil {
		return nil, nil
	}

	return convertPlayers(*players), nil
}

func (c *Client) dial(ctx context.Context, endpoint models.Endpoint) (*a2s.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := a2s.NewWithString(endpoint.String())
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrInvalidEndpoint, endpoint, err)
	}

	client.BufferSize = c.options.BufferSize
	client.Timeout = c.options.Timeout

	// the library has no context support, so shrink its timeout to the scan deadline
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < client.Timeout {
			client.Timeout = max(left, time.Millisecond)
		}
	}

	return client, nil
}

func convertInfo(info *a2s.Info) *models.ServerInfo {
	return &models.ServerInfo{
		Name:        info.Name,
		Map:         info.Map,
		Game:        info.Game,
		Version:     info.Version,
		Environment: info.Environment.String(),
		Players:     int(info.Players),
		MaxPlayers:  int(info.MaxPlayers),
		Bots:        int(info.Bots),
		VAC:         info.VAC,
		Password:    info.Visibility,
	}
}

func convertPlayers(players []a2s.Player) []models.PlayerSnapshot {
	roster := make([]models.PlayerSnapshot, 0, len(players))
	for _, p := range players {
		roster = append(roster, models.PlayerSnapshot{
			Name:     p.Name,
			Score:    int(int32(p.Score)), // #nosec G115 scores are signed on the wire
			Duration: p.Duration,
		})
	}

	return roster
}
