// Package notify delivers watched player alerts to a Discord compatible webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/1Michael23/tf2-surveillance/internal/config"
	"github.com/1Michael23/tf2-surveillance/internal/vars"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Payload is the webhook message body.
type Payload struct {
	Username  string  `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	Content   string  `json:"content,omitempty"`
	Embeds    []Embed `json:"embeds"`
}

// Embed is a single rich message block.
type Embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

// Webhook posts alerts, paced by a token bucket so bursts of target events
// stay under the receiver's rate limit.
type Webhook struct {
	client   *http.Client
	limiter  *rate.Limiter
	url      string
	username string
	avatar   string
}

// New returns a webhook sender for the given options.
func New(opts config.Webhook) *Webhook {
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}

	return &Webhook{
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, max(opts.Burst, 1)),
		url:      opts.URL,
		username: opts.Username,
		avatar:   opts.Image,
	}
}

// Notify sends one embed. It blocks until the rate limiter admits the message or ctx ends.
func (w *Webhook) Notify(ctx context.Context, title, description string, color int) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(Payload{
		Username:  w.username,
		AvatarURL: w.avatar,
		Content:   "ALERT",
		Embeds:    []Embed{{Title: title, Description: description, Color: color}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", vars.UserAgent())

	start := time.Now()
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook rejected with status %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	log.Debug().Str("title", title).Dur("took", time.Since(start)).Msg("Webhook sent")
	return nil
}
