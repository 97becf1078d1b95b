// Package dispatch submits prospect batches to the external workflow
// engine over its webhook contract.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/innovareai/outreach-dispatcher/internal/config"
	"github.com/innovareai/outreach-dispatcher/internal/pkg/httpretry"
)

// Client posts batch payloads to the workflow engine. Success is any 2xx
// response; the engine body carries no contract and is ignored.
type Client struct {
	http   httpretry.HTTPDoer
	cfg    config.WebhookConfig
	dryRun bool
}

// NewClient builds a webhook client with retry on 429/5xx and a bounded
// per-submission timeout. In dry-run mode submissions are logged and
// reported successful without touching the network.
func NewClient(cfg config.WebhookConfig, dryRun bool) *Client {
	base := &http.Client{Timeout: cfg.Timeout()}
	return &Client{
		http:   httpretry.NewRetryClient(base, cfg.MaxRetries),
		cfg:    cfg,
		dryRun: dryRun,
	}
}

// NewClientWithDoer is for tests that need to stub the transport.
func NewClientWithDoer(doer httpretry.HTTPDoer, cfg config.WebhookConfig, dryRun bool) *Client {
	return &Client{http: doer, cfg: cfg, dryRun: dryRun}
}

// Submit posts one batch. Service credentials are attached here so they
// never leave the process in logs or dry-run output.
func (c *Client) Submit(ctx context.Context, p Payload) error {
	if c.dryRun {
		log.Printf("[Dispatch] DRY RUN campaign=%s batch of %d prospects (not submitted)",
			p.CampaignID, len(p.Prospects))
		return nil
	}

	p.ServiceURL = c.cfg.ServiceURL
	p.ServiceKey = c.cfg.ServiceKey
	p.ProviderDSN = c.cfg.ProviderDSN
	p.ProviderAPIKey = c.cfg.ProviderAPIKey

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook returned %d: %s", resp.StatusCode, string(snippet))
	}

	io.Copy(io.Discard, resp.Body)
	return nil
}
