// Package notify pushes scan results to an ntfy topic.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

// Client implements the ntfy notification client.
type Client struct {
	httpClient *http.Client
	config     *Config
	logger     *zap.Logger
}

// NewClient creates a new ntfy client.
func NewClient(cfg *Config, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		config: cfg,
		logger: logger,
	}
}

// ScanCompleted sends a completion notification.
func (c *Client) ScanCompleted(ctx context.Context, id string, req scan.Request, s scan.Summary) error {
	if !c.config.Enabled {
		return nil
	}

	title := fmt.Sprintf("Scan Complete: %d/%d tickers", s.OK, s.Total)
	tags := c.config.Tags + ",white_check_mark"
	return c.send(ctx, title, FormatCompletedMessage(id, req, s), tags, c.config.Priority)
}

// ScanFailed sends a failure notification at high priority.
func (c *Client) ScanFailed(ctx context.Context, id string, req scan.Request, reason string) error {
	if !c.config.Enabled {
		return nil
	}

	tags := c.config.Tags + ",x"
	return c.send(ctx, "Scan Failed", FormatFailedMessage(id, req, reason), tags, "high")
}

func (c *Client) send(ctx context.Context, title, message, tags, priority string) error {
	url := fmt.Sprintf("%s/%s", strings.TrimSuffix(c.config.Server, "/"), c.config.Topic)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(message))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Title", title)
	req.Header.Set("Priority", priority)
	req.Header.Set("Tags", tags)
	if c.config.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending notification: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification failed with status: %d", resp.StatusCode)
	}

	c.logger.Debug("notification sent", zap.String("title", title))
	return nil
}

// NoopNotifier is used when notifications are disabled.
type NoopNotifier struct{}

func (NoopNotifier) ScanCompleted(context.Context, string, scan.Request, scan.Summary) error {
	return nil
}

func (NoopNotifier) ScanFailed(context.Context, string, scan.Request, string) error {
	return nil
}

// New creates the appropriate notifier based on config.
func New(cfg *Config, logger *zap.Logger) scan.Notifier {
	if cfg == nil || !cfg.Enabled {
		return NoopNotifier{}
	}
	return NewClient(cfg, logger)
}
