// Package heartbeat reports liveness to a push monitor such as Uptime Kuma.
package heartbeat

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/config"
	"github.com/1Michael23/tf2-surveillance/internal/vars"
)

// Pinger sends one GET request per cycle.
type Pinger struct {
	client *http.Client
	url    string
}

// New returns a pinger for the configured URL.
func New(opts config.Heartbeat) *Pinger {
	return &Pinger{
		client: &http.Client{Timeout: opts.Timeout},
		url:    opts.URL,
	}
}

// Ping requests the heartbeat URL. When latency is set its value in
// milliseconds is appended to the URL as is, e.g. "...?ping=" becomes "...?ping=850".
func (p *Pinger) Ping(ctx context.Context, latency *time.Duration) error {
	target := p.url
	if latency != nil {
		target += strconv.FormatInt(latency.Milliseconds(), 10)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create heartbeat request: %w", err)
	}
	req.Header.Set("User-Agent", vars.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send heartbeat: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("heartbeat rejected with status %d", resp.StatusCode)
	}

	return nil
}
